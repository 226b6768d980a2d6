// Package model defines database models
package model

import (
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"
)

var (
	ErrFileTypeUnsupported = errors.New("unsupported file type")
	ErrMissingField        = errors.New("missing required field")
)

// FileTypes is the allow-list of file types a record may carry. "folder" is
// never derived from a file name, it can only be set explicitly by a client.
var FileTypes = []string{"html", "js", "jsx", "ts", "tsx", "xlsx", "py", "ipynb", "pdf", "docx", "txt", "png", "jpg", "folder"}

// FileTypeFromName returns the allow-listed type of a file name based on its
// extension, or an empty string when the extension is not supported
func FileTypeFromName(name string) string {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	if ext == "" || ext == "folder" || !slices.Contains(FileTypes, ext) {
		return ""
	}

	return ext
}

// Visit is reserved for link visit tracking. Nothing appends to it yet.
type Visit struct {
	Timestamp int64 `bson:"timestamp" json:"timestamp"`
}

// Record ties an uploaded artifact to its owner and a short link
type Record struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" bson:"-" json:"-"`
	ShortID     string `gorm:"uniqueIndex;not null" bson:"short_id" json:"shortId"` // Immutable once assigned
	RedirectURL string `gorm:"not null" bson:"redirect_url" json:"redirectUrl"`
	ProjectName string `gorm:"not null" bson:"project_name" json:"projectName"`
	FileType    string `gorm:"not null" bson:"file_type" json:"fileType"`
	Username    string `gorm:"index;not null" bson:"username" json:"username"`
	// true while the project is ongoing
	Status       bool      `gorm:"default:true" bson:"status" json:"status"`
	VisitHistory []Visit   `gorm:"serializer:json" bson:"visit_history" json:"visitHistory"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updatedAt"`
}

// NewRecord returns an ongoing record with an empty visit history
func NewRecord(shortID, link, projectName, fileType, username string) *Record {
	return &Record{
		ShortID:      shortID,
		RedirectURL:  link,
		ProjectName:  projectName,
		FileType:     fileType,
		Username:     username,
		Status:       true,
		VisitHistory: []Visit{},
	}
}

// Validate checks the required fields and the file type allow-list
func (r *Record) Validate() error {
	switch {
	case r.ShortID == "":
		return fmt.Errorf("%w: shortId", ErrMissingField)
	case r.RedirectURL == "":
		return fmt.Errorf("%w: redirectUrl", ErrMissingField)
	case r.ProjectName == "":
		return fmt.Errorf("%w: projectName", ErrMissingField)
	case r.Username == "":
		return fmt.Errorf("%w: username", ErrMissingField)
	}

	if !slices.Contains(FileTypes, r.FileType) {
		return fmt.Errorf("%w: %q", ErrFileTypeUnsupported, r.FileType)
	}

	return nil
}

func (r *Record) BeforeCreate(tx *gorm.DB) error {
	if r.VisitHistory == nil {
		r.VisitHistory = []Visit{}
	}

	return r.Validate()
}
