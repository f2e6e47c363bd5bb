package core

// streaming.go repairs the encoding of data sources before they reach the
// tabular parser.
//
// Tables saved from spreadsheets on Windows often mix UTF-8 with stray
// Windows-1252 bytes ("Jos\xe9"). Those bytes are decoded as Windows-1252
// while the text streams through; valid UTF-8 passes untouched.

import (
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// NewTextReader wraps r so every byte that is not part of a valid UTF-8
// sequence is decoded as Windows-1252. Sequences split across reads are
// held back until the rest arrives.
func NewTextReader(r io.Reader) io.Reader {
	return transform.NewReader(r, legacyBytes{})
}

// legacyBytes is a transform.Transformer producing valid UTF-8.
type legacyBytes struct{ transform.NopResetter }

func (legacyBytes) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		b := src[nSrc]
		if b < utf8.RuneSelf {
			if nDst == len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			dst[nDst] = b
			nDst++
			nSrc++
			continue
		}

		r, size := utf8.DecodeRune(src[nSrc:])
		if r == utf8.RuneError && size == 1 {
			if !atEOF && !utf8.FullRune(src[nSrc:]) {
				return nDst, nSrc, transform.ErrShortSrc
			}
			r = charmap.Windows1252.DecodeByte(b)
			if nDst+utf8.RuneLen(r) > len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			nDst += utf8.EncodeRune(dst[nDst:], r)
			nSrc++
			continue
		}

		if nDst+size > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		nDst += copy(dst[nDst:], src[nSrc:nSrc+size])
		nSrc += size
	}
	return nDst, nSrc, nil
}
