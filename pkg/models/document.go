package models

import "time"

// RawRecord is one parsed source row: field name to raw text, exactly as it
// appeared in the file (or staging table).
type RawRecord map[string]string

// Document is the normalized form of a RawRecord, ready for storage.
// Fields hold only nil, float64 or string values. Key is the deterministic
// natural key the destination store upserts on.
type Document struct {
	Key    string
	Fields map[string]interface{}
}

// BatchRange identifies one fixed-size contiguous slice of a category's
// document sequence. Boundaries are a pure function of total count and batch
// size, so they never shift between runs.
type BatchRange struct {
	Index int
	Start int
	End   int // exclusive
}

// Len returns the number of documents in the range.
func (b BatchRange) Len() int { return b.End - b.Start }

// CategoryProgress is one category's entry in the checkpoint file.
// LastIndex is the offset of the first record not yet known committed;
// it only ever advances over consecutively completed batches.
type CategoryProgress struct {
	LastIndex int  `json:"lastIndex"`
	Completed bool `json:"completed"`
}

// Checkpoint is the durable upload progress record, rewritten in full after
// every committed batch and deleted once every category completes.
type Checkpoint struct {
	Categories map[Category]CategoryProgress `json:"categories"`
	LastUpdate time.Time                     `json:"lastUpdate"`
}

// NewCheckpoint returns an empty (fresh start) checkpoint.
func NewCheckpoint() *Checkpoint {
	return &Checkpoint{Categories: make(map[Category]CategoryProgress)}
}

// Progress returns the recorded progress for a category, zero-valued when
// the category has never been checkpointed.
func (c *Checkpoint) Progress(cat Category) CategoryProgress {
	return c.Categories[cat]
}

// SetProgress records progress for a category and stamps the update time.
func (c *Checkpoint) SetProgress(cat Category, p CategoryProgress) {
	if c.Categories == nil {
		c.Categories = make(map[Category]CategoryProgress)
	}
	c.Categories[cat] = p
	c.LastUpdate = time.Now().UTC()
}

// AllCompleted reports whether every one of the given categories has
// finished uploading.
func (c *Checkpoint) AllCompleted(cats []Category) bool {
	for _, cat := range cats {
		if !c.Categories[cat].Completed {
			return false
		}
	}
	return len(cats) > 0
}

// ErrorRecord is one entry in the durable error log.
type ErrorRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error"`
	Context   string    `json:"context"`
}
