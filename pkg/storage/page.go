package storage

import (
	"encoding/binary"
	"fmt"
)

const (
	// PageCapacity is the number of integer slots per column page
	PageCapacity = 512

	// PageHeaderSize is the size of the serialized page header
	PageHeaderSize = 16

	// PageFileSize is the size of an uncompressed serialized page
	PageFileSize = PageHeaderSize + PageCapacity*8

	// pageMagic marks the start of a serialized page
	pageMagic = 0x4C
)

// PageKind distinguishes base pages from tail pages
type PageKind uint8

const (
	PageKindBase PageKind = iota
	PageKindTail
)

// String returns the on-disk directory name for the page kind
func (k PageKind) String() string {
	if k == PageKindTail {
		return "tail"
	}
	return "base"
}

// PageID uniquely identifies one column page of one table
type PageID struct {
	Table  string
	Column int
	Page   int
	Kind   PageKind
}

func (id PageID) String() string {
	return fmt.Sprintf("%s/%s/col_%d_page_%d", id.Table, id.Kind, id.Column, id.Page)
}

// Page is a fixed-capacity append-only container of signed integers.
// One page holds one column of one table for one page number. Existing
// slots are overwritten only by an update repointing a base record's
// indirection and by merge writeback.
type Page struct {
	ID        PageID
	SlotCount int
	Slots     [PageCapacity]int64
	IsDirty   bool
	PinCount  int
}

// NewPage creates an empty page
func NewPage(id PageID) *Page {
	return &Page{ID: id}
}

// HasCapacity returns true if the page can take another slot
func (p *Page) HasCapacity() bool {
	return p.SlotCount < PageCapacity
}

// Write appends a value and returns its slot index
func (p *Page) Write(value int64) (int, error) {
	if !p.HasCapacity() {
		return 0, fmt.Errorf("page %s: %w", p.ID, ErrPageFull)
	}
	slot := p.SlotCount
	p.Slots[slot] = value
	p.SlotCount++
	return slot, nil
}

// Read returns the value at the given slot
func (p *Page) Read(slot int) (int64, error) {
	if slot < 0 || slot >= p.SlotCount {
		return 0, fmt.Errorf("page %s slot %d of %d: %w", p.ID, slot, p.SlotCount, ErrSlotOutOfRange)
	}
	return p.Slots[slot], nil
}

// Overwrite replaces the value at an existing slot. Used for the base
// indirection repoint on update and for merge writeback.
func (p *Page) Overwrite(slot int, value int64) error {
	if slot < 0 || slot >= p.SlotCount {
		return fmt.Errorf("page %s slot %d of %d: %w", p.ID, slot, p.SlotCount, ErrSlotOutOfRange)
	}
	p.Slots[slot] = value
	return nil
}

// Serialize converts the page to bytes for storage.
// Layout: [1-byte magic][1-byte kind][2 reserved][4-byte slot count][8 reserved]
// followed by PageCapacity fixed-width little-endian slots.
func (p *Page) Serialize() []byte {
	buf := make([]byte, PageFileSize)
	buf[0] = pageMagic
	buf[1] = byte(p.ID.Kind)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(p.SlotCount))
	for i := 0; i < PageCapacity; i++ {
		binary.LittleEndian.PutUint64(buf[PageHeaderSize+i*8:], uint64(p.Slots[i]))
	}
	return buf
}

// Deserialize loads page contents from bytes
func (p *Page) Deserialize(data []byte) error {
	if len(data) != PageFileSize {
		return fmt.Errorf("page %s: size %d, want %d: %w", p.ID, len(data), PageFileSize, ErrCorruptPage)
	}
	if data[0] != pageMagic {
		return fmt.Errorf("page %s: bad magic 0x%02x: %w", p.ID, data[0], ErrCorruptPage)
	}
	count := int(binary.LittleEndian.Uint32(data[4:8]))
	if count < 0 || count > PageCapacity {
		return fmt.Errorf("page %s: slot count %d: %w", p.ID, count, ErrCorruptPage)
	}
	p.SlotCount = count
	for i := 0; i < PageCapacity; i++ {
		p.Slots[i] = int64(binary.LittleEndian.Uint64(data[PageHeaderSize+i*8:]))
	}
	return nil
}

// Pin increments the pin count (page is in use)
func (p *Page) Pin() {
	p.PinCount++
}

// Unpin decrements the pin count
func (p *Page) Unpin() {
	if p.PinCount > 0 {
		p.PinCount--
	}
}

// IsPinned returns true if the page is pinned
func (p *Page) IsPinned() bool {
	return p.PinCount > 0
}

// MarkDirty marks the page as modified
func (p *Page) MarkDirty() {
	p.IsDirty = true
}
