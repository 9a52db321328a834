package catalog

// AssetDetails is the untyped detail record returned by the views endpoint.
// The API does not guarantee a schema, so fields are read through optional
// accessors: an absent or non-string field reads as not-present rather than
// failing the whole record.
type AssetDetails map[string]any

func (d AssetDetails) stringField(key string) (string, bool) {
	v, ok := d[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// AssetType returns the declared asset type, or "" when absent.
func (d AssetDetails) AssetType() string {
	s, _ := d.stringField("assetType")
	return s
}

// BlobMimeType returns the blob MIME type for file assets.
func (d AssetDetails) BlobMimeType() (string, bool) {
	return d.stringField("blobMimeType")
}

// BlobFilename returns the original filename for file assets.
func (d AssetDetails) BlobFilename() (string, bool) {
	return d.stringField("blobFilename")
}

// Kind is the download strategy an asset resolves to.
type Kind int

const (
	// KindUnknown assets have no payload to download.
	KindUnknown Kind = iota
	// KindFile assets carry a binary blob.
	KindFile
	// KindDataset assets export as tabular CSV.
	KindDataset
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDataset:
		return "dataset"
	default:
		return "unknown"
	}
}

// Classify maps an asset's declared type onto a download strategy.
func Classify(details AssetDetails) Kind {
	switch details.AssetType() {
	case "file":
		return KindFile
	case "dataset":
		return KindDataset
	default:
		return KindUnknown
	}
}
