/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package crypt

import (
	"fmt"

	"github.com/unidoc/pdfcrypt/common"
)

func init() {
	registerFilter("AESV2", newFilterAESV2)
}

// NewFilterAESV2 builds an AES-128 crypt filter (CFM AESV2). The key length
// is fixed by the standard, so unlike NewFilterV2 there is nothing to pass
// in.
func NewFilterAESV2() Filter {
	f, err := newFilterAESV2(FilterDict{})
	if err != nil {
		common.Log.Error("ERROR: could not create AES V2 crypt filter: %v", err)
		return filterAESV2{}
	}
	return f
}

func newFilterAESV2(d FilterDict) (Filter, error) {
	length := d.Length
	if length == 128 {
		common.Log.Debug("AESV2 crypt filter length %d looks like bits, not bytes; dividing by 8", length)
		length /= 8
	}
	if length != 0 && length != 16 {
		return nil, fmt.Errorf("AESV2 crypt filter key length must be 16 bytes, got %d", length)
	}
	return filterAESV2{}, nil
}

var _ Filter = filterAESV2{}

// filterAESV2 is the AES-128-CBC crypt filter introduced in PDF 1.6.
type filterAESV2 struct {
	filterAES
}

func (filterAESV2) PDFVersion() [2]int { return [2]int{1, 6} }

func (filterAESV2) HandlerVersion() (V, R int) { return 4, 4 }

func (filterAESV2) Name() string { return "AESV2" }

func (filterAESV2) KeyLength() int { return 16 }

// MakeKey salts the file key per object, same as the RC4 filters, per
// Algorithm 1.
func (filterAESV2) MakeKey(objNum, genNum uint32, fkey []byte) ([]byte, error) {
	return deriveObjectKey(objNum, genNum, fkey, true)
}
