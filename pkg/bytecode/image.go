package bytecode

import (
	"encoding/binary"
	"fmt"
)

// Image is a compiled bytecode artifact: header + code section + data
// section, per spec §4.2. It is immutable once produced and safe to share
// read-only across VM instances and threads (spec §5).
type Image []byte

// ErrMalformed reports a structurally invalid image (too short, or a
// header that claims sections past the buffer's end).
type ErrMalformed struct {
	Reason string
}

func (e *ErrMalformed) Error() string { return "malformed bytecode image: " + e.Reason }

// Validate checks the header's internal consistency without inspecting
// instructions. Callers should run this once after loading an image from
// an untrusted source (e.g. disk) before constructing a VM over it.
func (img Image) Validate() error {
	if len(img) < headerSize {
		return &ErrMalformed{Reason: fmt.Sprintf("buffer too short for header: %d bytes", len(img))}
	}
	end := img.CodeSectionEnd()
	if int(end) < headerSize || int(end) > len(img) {
		return &ErrMalformed{Reason: fmt.Sprintf("code_section_end %d out of range [%d,%d]", end, headerSize, len(img))}
	}
	entry := img.EntryOffset()
	if int(entry) > len(img.Code()) {
		return &ErrMalformed{Reason: fmt.Sprintf("entry_offset %d beyond code section length %d", entry, len(img.Code()))}
	}
	return nil
}

// CodeSectionEnd reads the header's code_section_end field (bytes 0..4):
// the absolute offset, from the start of the image, where the code section
// ends and the data section begins.
func (img Image) CodeSectionEnd() uint32 {
	return binary.LittleEndian.Uint32(img[0:4])
}

// EntryOffset reads the header's entry_offset field (bytes 4..8): the
// main-script entry point, relative to the start of the code section.
func (img Image) EntryOffset() uint32 {
	return binary.LittleEndian.Uint32(img[4:8])
}

// Code returns the code section: bytes [8, code_section_end).
func (img Image) Code() []byte {
	return img[headerSize:img.CodeSectionEnd()]
}

// Data returns the data section: bytes [code_section_end, len(img)).
func (img Image) Data() []byte {
	return img[img.CodeSectionEnd():]
}

// StringAt reads the length-prefixed string literal at data-section offset
// off, per spec §4.2: "at offset D the layout is u32 end followed by raw
// bytes from D+4 to end," where end is absolute within the data section.
// The returned slice borrows the image's backing array directly, matching
// spec §3's requirement that a Str may point into the bytecode data
// section for the VM's lifetime.
func (img Image) StringAt(off uint32) []byte {
	data := img.Data()
	end := binary.LittleEndian.Uint32(data[off : off+4])
	return data[off+4 : end]
}

// FuncDescriptor is the {arity, code_offset} pair spec §4.2 describes for
// a compiled function.
type FuncDescriptor struct {
	Arity      byte
	CodeOffset uint32
}

// FuncAt reads the 5-byte function descriptor at data-section offset off.
func (img Image) FuncAt(off uint32) FuncDescriptor {
	data := img.Data()
	return FuncDescriptor{
		Arity:      data[off],
		CodeOffset: binary.LittleEndian.Uint32(data[off+1 : off+5]),
	}
}
