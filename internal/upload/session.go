package upload

import (
	"fmt"
	"strings"
)

// State is the lifecycle state of a Session.
type State string

const (
	StateReserved     State = "reserved"
	StateTransferring State = "transferring"
	StateCommitted    State = "committed"
	StateFailed       State = "failed"
)

// Header is one required request header of an upload operation.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Operation is one pre-signed destination for a slice of the asset.
// Length 0 means the whole file.
type Operation struct {
	Method  string   `json:"method"`
	URL     string   `json:"url"`
	Length  int64    `json:"length"`
	Offset  int64    `json:"offset"`
	Headers []Header `json:"requestHeaders"`
}

// Session is one reserved asset. It is owned by the goroutine driving it.
type Session struct {
	AssetID    string
	Kind       Kind
	ParentID   string
	FileName   string
	FileSize   int64
	Operations []Operation
	Checksum   string
	State      State
	// Err is the failure that moved the session to StateFailed.
	Err error

	transferred bool
}

// Transferred reports whether every part has been sent successfully.
func (s *Session) Transferred() bool { return s.transferred }

// Kind describes an asset type: its resource, the parent relationship it is
// reserved under and, for set based kinds, the attribute sets are keyed by.
type Kind struct {
	Name               string
	Resource           string
	ParentRelationship string
	ParentResource     string

	// SetTypeAttribute is the attribute distinguishing parent sets of one
	// localization. Empty for kinds whose parent is not a set.
	SetTypeAttribute string
}

var (
	Screenshot = Kind{
		Name:               "screenshot",
		Resource:           "appScreenshots",
		ParentRelationship: "appScreenshotSet",
		ParentResource:     "appScreenshotSets",
		SetTypeAttribute:   "screenshotDisplayType",
	}
	AppPreview = Kind{
		Name:               "preview",
		Resource:           "appPreviews",
		ParentRelationship: "appPreviewSet",
		ParentResource:     "appPreviewSets",
		SetTypeAttribute:   "previewType",
	}
	ReviewAttachment = Kind{
		Name:               "review-attachment",
		Resource:           "appStoreReviewAttachments",
		ParentRelationship: "appStoreReviewDetail",
		ParentResource:     "appStoreReviewDetails",
	}
)

var kinds = []Kind{Screenshot, AppPreview, ReviewAttachment}

// KindByName looks a kind up by its Name.
func KindByName(name string) (Kind, error) {
	for _, k := range kinds {
		if k.Name == name {
			return k, nil
		}
	}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.Name
	}
	return Kind{}, fmt.Errorf("unknown asset kind %q (want one of %s)", name, strings.Join(names, ", "))
}
