// Copyright 2025 Veritas Documents
package storage

import "time"

// AssetMetadataRecord is the only record shape the AssetMetadata class
// accepts. Its KV and object copies carry every field; its content-tier
// copy carries only what PublicProjection returns, so a public reader
// holding nothing but the content digest can never recover an owner's
// identity or private notes beyond what the asset's owner chose to make
// searchable.
type AssetMetadataRecord struct {
	ID                 string    `json:"id"`
	ContentDigest      string    `json:"contentDigest"`
	DocumentType       string    `json:"documentType"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	CreatedAt          time.Time `json:"createdAt"`
	PubliclySearchable bool      `json:"publiclySearchable"`

	OwnerID          string         `json:"ownerId"`
	OwnerPublicKey   string         `json:"ownerPublicKey"`
	CreatorID        string         `json:"creatorId"`
	CreatorPublicKey string         `json:"creatorPublicKey"`
	InternalNotes    string         `json:"internalNotes,omitempty"`
	PublicExtras     map[string]any `json:"publicExtras,omitempty"`
}

// PublicProjection returns the content-tier projection of r. When r is not
// PubliclySearchable it emits exactly {id, contentDigest, createdAt,
// publiclySearchable, ownerPublicKey, creatorPublicKey}; when it is, the
// same fields plus {title, description, documentType, ownerId, creatorId,
// publicExtras}. OwnerID/CreatorID/publicExtras never appear for a
// non-searchable asset; InternalNotes never appears in either case.
func PublicProjection(r *AssetMetadataRecord) map[string]any {
	out := map[string]any{
		"id":                 r.ID,
		"contentDigest":      r.ContentDigest,
		"createdAt":          r.CreatedAt,
		"publiclySearchable": r.PubliclySearchable,
		"ownerPublicKey":     r.OwnerPublicKey,
		"creatorPublicKey":   r.CreatorPublicKey,
	}
	if !r.PubliclySearchable {
		return out
	}
	out["title"] = r.Title
	out["description"] = r.Description
	out["documentType"] = r.DocumentType
	out["ownerId"] = r.OwnerID
	out["creatorId"] = r.CreatorID
	if r.PublicExtras != nil {
		out["publicExtras"] = r.PublicExtras
	}
	return out
}
