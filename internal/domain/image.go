package domain

import "time"

// ImageRecord is one stored product image. File carries a self-describing
// encoded payload (a base64 JPEG data URL). At most one record exists per
// composite key.
type ImageRecord struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Supplier  string    `json:"supplier"`
	File      string    `json:"file"`
	Timestamp time.Time `json:"timestamp"`
}

// Key returns the image's composite identity.
func (r ImageRecord) Key() string {
	return CompositeKey(r.Code, r.Supplier)
}
