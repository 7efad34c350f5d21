/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Wed Feb 13 16:10:29 2019 mstenber
 * Last modified: Thu Mar 14 11:33:02 2019 mstenber
 * Edit time:     64 min
 *
 */

// codec library transforms data + additionalData to different kind
// of data: encrypting/decrypting, or compressing/uncompressing, on
// case-by-case basis.
//
// CodecChain combines multiple Codecs into one that performs the
// individual steps in order.
package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"log"

	"github.com/golang/snappy"
	"github.com/minio/sha256-simd"
	"golang.org/x/crypto/pbkdf2"

	ucodec "github.com/ugorji/go/codec"
)

// Codec is a single transformation of byte slices.
type Codec interface {
	DecodeBytes(data, additionalData []byte) (ret []byte, err error)
	EncodeBytes(data, additionalData []byte) (ret []byte, err error)
}

type encryptedEnvelope struct {
	Nonce      []byte
	Ciphertext []byte
}

type compressedEnvelope struct {
	Compressed bool
	RawData    []byte
}

func envelopeToBytes(v interface{}) []byte {
	var ch ucodec.CborHandle
	var b []byte
	enc := ucodec.NewEncoderBytes(&b, &ch)
	if err := enc.Encode(v); err != nil {
		log.Panic(err)
	}
	return b
}

func envelopeFromBytes(b []byte, v interface{}) error {
	var ch ucodec.CborHandle
	dec := ucodec.NewDecoderBytes(b, &ch)
	return dec.Decode(v)
}

// EncryptingCodec is an AES-GCM based encrypting (+authenticating)
// Codec; additionalData is authenticated but not stored.
type EncryptingCodec struct {
	gcm cipher.AEAD
}

func (self EncryptingCodec) Init(password, salt []byte, iter int) *EncryptingCodec {
	mk := pbkdf2.Key(password, salt, iter, 32, sha256.New)
	block, err := aes.NewCipher(mk)
	if err != nil {
		log.Fatal(err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		log.Fatal(err)
	}
	self.gcm = gcm
	return &self
}

func (self *EncryptingCodec) DecodeBytes(data, additionalData []byte) (ret []byte, err error) {
	var ed encryptedEnvelope
	if err = envelopeFromBytes(data, &ed); err != nil {
		return
	}
	return self.gcm.Open(nil, ed.Nonce, ed.Ciphertext, additionalData)
}

func (self *EncryptingCodec) EncodeBytes(data, additionalData []byte) (ret []byte, err error) {
	nonce := make([]byte, self.gcm.NonceSize())
	if _, err = rand.Read(nonce); err != nil {
		return
	}
	ciphertext := self.gcm.Seal(nil, nonce, data, additionalData)
	return envelopeToBytes(encryptedEnvelope{Nonce: nonce, Ciphertext: ciphertext}), nil
}

// CompressingCodec compresses on the fly. If the result does not
// improve, the data is marked plain and passed as-is (at cost of the
// envelope).
type CompressingCodec struct {
}

func (self *CompressingCodec) DecodeBytes(data, additionalData []byte) (ret []byte, err error) {
	var cd compressedEnvelope
	if err = envelopeFromBytes(data, &cd); err != nil {
		return
	}
	if !cd.Compressed {
		return cd.RawData, nil
	}
	return snappy.Decode(nil, cd.RawData)
}

func (self *CompressingCodec) EncodeBytes(data, additionalData []byte) (ret []byte, err error) {
	cd := compressedEnvelope{Compressed: true,
		RawData: snappy.Encode(nil, data)}
	if len(cd.RawData) >= len(data) {
		cd = compressedEnvelope{RawData: data}
	}
	return envelopeToBytes(cd), nil
}

// CodecChain combines multiple Codecs; codecs are given in decode
// order, so e.g. the encrypting one should come before the
// compressing one.
type CodecChain struct {
	codecs, reverseCodecs []Codec
}

func (self CodecChain) Init(codecs ...Codec) *CodecChain {
	self.codecs = codecs
	rc := make([]Codec, len(codecs))
	for i, c := range codecs {
		rc[len(codecs)-i-1] = c
	}
	self.reverseCodecs = rc
	return &self
}

func (self *CodecChain) DecodeBytes(data, additionalData []byte) (ret []byte, err error) {
	ret = data
	for _, c := range self.codecs {
		ret, err = c.DecodeBytes(data, additionalData)
		if err != nil {
			err = fmt.Errorf("codec decode: %w", err)
			return
		}
		data = ret
	}
	return
}

func (self *CodecChain) EncodeBytes(data, additionalData []byte) (ret []byte, err error) {
	ret = data
	for _, c := range self.reverseCodecs {
		ret, err = c.EncodeBytes(data, additionalData)
		if err != nil {
			err = fmt.Errorf("codec encode: %w", err)
			return
		}
		data = ret
	}
	return
}
