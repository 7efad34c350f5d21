/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Mar  5 11:02:18 2019 mstenber
 * Last modified: Tue Mar  5 11:40:55 2019 mstenber
 * Edit time:     38 min
 *
 */

package codec

import (
	"testing"

	"github.com/stvp/assert"
)

const compressible = "123456789123456789123456789123456789123456789123456789123456789123456789123456789123456789123456789"

func ProdCodecOnce(text string, c Codec, t *testing.T) {
	p := []byte(text)
	enc, err := c.EncodeBytes(p, nil)
	assert.Nil(t, err)
	dec, err := c.DecodeBytes(enc, nil)
	assert.Nil(t, err)
	assert.Equal(t, p, dec)
}

func ProdCodec(c Codec, t *testing.T) {
	ProdCodecOnce("foo", c, t)
	ProdCodecOnce(compressible, c, t)
}

func TestEncryptingCodec(t *testing.T) {
	p := []byte("data")
	ad := []byte("ad")

	c := EncryptingCodec{}.Init([]byte("foo"), []byte("salt"), 64)

	// 'any codec' handling
	ProdCodec(c, t)

	enc, err := c.EncodeBytes(p, nil)
	assert.Nil(t, err)

	// Ensure we can't fuck around with additional data
	_, err2 := c.DecodeBytes(enc, ad)
	assert.True(t, err2 != nil)

	// Ensure same payload does not encrypt the same way
	enc2, err := c.EncodeBytes(p, nil)
	assert.Nil(t, err)
	assert.NotEqual(t, enc, enc2)

	// But it still can be decrypted
	dec, err := c.DecodeBytes(enc2, nil)
	assert.Nil(t, err)
	assert.Equal(t, p, dec)

	// Round trip with matching additional data
	enc3, err := c.EncodeBytes(p, ad)
	assert.Nil(t, err)
	dec, err = c.DecodeBytes(enc3, ad)
	assert.Nil(t, err)
	assert.Equal(t, p, dec)
}

func TestCompressingCodec(t *testing.T) {
	c := &CompressingCodec{}
	ProdCodec(c, t)

	// Compressible content actually shrinks.
	enc, err := c.EncodeBytes([]byte(compressible), nil)
	assert.Nil(t, err)
	assert.True(t, len(enc) < len(compressible))
}

func TestCodecChain(t *testing.T) {
	c := CodecChain{}.Init(
		EncryptingCodec{}.Init([]byte("foo"), []byte("salt"), 64),
		&CompressingCodec{})
	ProdCodec(c, t)

	// The outermost layer is the encryption; envelope bytes must
	// not leak plaintext.
	enc, err := c.EncodeBytes([]byte(compressible), nil)
	assert.Nil(t, err)
	assert.True(t, string(enc) != compressible)

	// Garbage does not decode.
	_, err = c.DecodeBytes([]byte("garbage"), nil)
	assert.True(t, err != nil)
}
