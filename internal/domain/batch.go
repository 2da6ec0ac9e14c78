package domain

import "encoding/json"

// QueuedRecord is one locally queued item waiting for upload.
type QueuedRecord struct {
	ID       uint
	Category Category
	Payload  json.RawMessage
}

// UploadBatch is a group of queued records sent together in one request.
// It maintains the invariant that IDs and Payloads have the same length.
type UploadBatch struct {
	Category Category

	// IDs holds the queue ids to acknowledge once the batch is accepted.
	IDs []uint

	// Payloads holds the raw JSON payload of each record.
	Payloads []json.RawMessage

	// TotalBytes is the sum of all payload lengths.
	TotalBytes int
}

// NewUploadBatch creates a new empty batch for a category.
func NewUploadBatch(category Category) *UploadBatch {
	return &UploadBatch{
		Category: category,
		IDs:      make([]uint, 0),
		Payloads: make([]json.RawMessage, 0),
	}
}

// Add appends a record to the batch.
func (b *UploadBatch) Add(rec QueuedRecord) {
	b.IDs = append(b.IDs, rec.ID)
	b.Payloads = append(b.Payloads, rec.Payload)
	b.TotalBytes += len(rec.Payload)
}

// Fits reports whether rec can join the batch without exceeding maxBytes.
// An empty batch accepts any record so oversized records still ship alone.
func (b *UploadBatch) Fits(rec QueuedRecord, maxBytes int) bool {
	if b.Empty() || maxBytes <= 0 {
		return true
	}
	return b.TotalBytes+len(rec.Payload) <= maxBytes
}

// Size returns the number of records in the batch.
func (b *UploadBatch) Size() int {
	return len(b.IDs)
}

// Empty returns true if the batch has no records.
func (b *UploadBatch) Empty() bool {
	return len(b.IDs) == 0
}

// Split groups records into batches of at most maxBytes each, preserving order.
func Split(category Category, records []QueuedRecord, maxBytes int) []*UploadBatch {
	var batches []*UploadBatch
	cur := NewUploadBatch(category)
	for _, rec := range records {
		if !cur.Fits(rec, maxBytes) {
			batches = append(batches, cur)
			cur = NewUploadBatch(category)
		}
		cur.Add(rec)
	}
	if !cur.Empty() {
		batches = append(batches, cur)
	}
	return batches
}
