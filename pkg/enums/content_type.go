package enums

import "fmt"

// ContentType classifies a digital content item.
type ContentType string

const (
	ContentTypeEbook   ContentType = "ebook"
	ContentTypeJournal ContentType = "journal"
	ContentTypePaper   ContentType = "paper"
	ContentTypeThesis  ContentType = "thesis"
	ContentTypeNotes   ContentType = "notes"
	ContentTypeOther   ContentType = "other"
)

var validContentTypes = []ContentType{
	ContentTypeEbook,
	ContentTypeJournal,
	ContentTypePaper,
	ContentTypeThesis,
	ContentTypeNotes,
	ContentTypeOther,
}

func (c ContentType) String() string {
	return string(c)
}

func (c ContentType) IsValid() bool {
	for _, candidate := range validContentTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseContentType converts raw input into a ContentType.
func ParseContentType(value string) (ContentType, error) {
	for _, candidate := range validContentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid content type %q", value)
}
