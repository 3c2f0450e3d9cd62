// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByteArray_MarshalJSON_IntegerArray(t *testing.T) {
	data, err := json.Marshal(ByteArray{0, 1, 127, 255})
	require.NoError(t, err)
	assert.Equal(t, "[0,1,127,255]", string(data))
}

func TestByteArray_MarshalJSON_NilIsEmptyArray(t *testing.T) {
	data, err := json.Marshal(ByteArray(nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestByteArray_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ByteArray
		wantErr bool
	}{
		{name: "bytes", input: "[3,2,1]", want: ByteArray{3, 2, 1}},
		{name: "empty", input: "[]", want: ByteArray{}},
		{name: "null", input: "null", want: nil},
		{name: "out of range", input: "[1,256]", wantErr: true},
		{name: "negative", input: "[-1]", wantErr: true},
		{name: "not an array", input: `"AQID"`, wantErr: true},
		{name: "floats", input: "[1.5]", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got ByteArray
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMalformedByteArray)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestByteArray_ValueAndScan(t *testing.T) {
	v, err := ByteArray{9, 8, 7}.Value()
	require.NoError(t, err)
	assert.Equal(t, "[9,8,7]", v)

	var fromString ByteArray
	require.NoError(t, fromString.Scan("[9,8,7]"))
	assert.Equal(t, ByteArray{9, 8, 7}, fromString)

	var fromBytes ByteArray
	require.NoError(t, fromBytes.Scan([]byte("[1]")))
	assert.Equal(t, ByteArray{1}, fromBytes)

	var fromNil ByteArray
	require.NoError(t, fromNil.Scan(nil))
	assert.Nil(t, fromNil)

	var bad ByteArray
	assert.ErrorIs(t, bad.Scan(42), ErrMalformedByteArray)
}
