// Package service contains the upload pipeline and the clients it depends on
package service

import (
	"bitbnb/hosting-api/db"
	"bitbnb/hosting-api/model"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// Stage is a step of the upload pipeline. Failures report the stage they
// were trying to reach.
type Stage int

const (
	StageReceived Stage = iota
	StageTypeValidated
	StageStored
	StageRecorded
	StageCompleted
)

func (s Stage) String() string {
	switch s {
	case StageReceived:
		return "received"
	case StageTypeValidated:
		return "type_validated"
	case StageStored:
		return "stored"
	case StageRecorded:
		return "recorded"
	case StageCompleted:
		return "completed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

type UploadError struct {
	Stage Stage
	Err   error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed at %s, %v", e.Stage, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

type UploadRequest struct {
	FileName    string
	ProjectName string
	Username    string
	Body        io.Reader
}

type UploadResult struct {
	ShortLink string        `json:"shortLink"`
	IPFSLink  string        `json:"ipfsLink"`
	Record    *model.Record `json:"-"`
}

type Uploader struct {
	Content ContentAdder
	Store   db.RecordStore
	IDs     IDGenerator

	// ContentGateway prefixes content identifiers, ShortLinkBase prefixes short ids
	ContentGateway string
	ShortLinkBase  string
}

func NewUploader(content ContentAdder, store db.RecordStore, contentGateway, shortLinkBase string) *Uploader {
	return &Uploader{
		Content:        content,
		Store:          store,
		IDs:            NanoID{Size: shortIDSize},
		ContentGateway: contentGateway,
		ShortLinkBase:  shortLinkBase,
	}
}

// Do runs one upload through the pipeline. Each request is independent, the
// only shared state is the content adder and the record store.
func (u *Uploader) Do(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	if req.Body == nil {
		return nil, &UploadError{StageReceived, errors.New("no file uploaded")}
	}

	if strings.TrimSpace(req.ProjectName) == "" {
		return nil, &UploadError{StageReceived, fmt.Errorf("%w: projectName", model.ErrMissingField)}
	}

	if strings.TrimSpace(req.Username) == "" {
		return nil, &UploadError{StageReceived, fmt.Errorf("%w: username", model.ErrMissingField)}
	}

	fileType := model.FileTypeFromName(req.FileName)
	if fileType == "" {
		return nil, &UploadError{StageTypeValidated, fmt.Errorf("%w: %s", model.ErrFileTypeUnsupported, req.FileName)}
	}

	cid, err := u.Content.Add(ctx, req.Body)
	if err != nil {
		return nil, &UploadError{StageStored, err}
	}

	link := model.ContentLink(u.ContentGateway, cid)
	zap.L().Debug("File stored", zap.String("cid", cid), zap.String("username", req.Username))

	rec, err := u.record(ctx, link, req.ProjectName, fileType, req.Username)
	if err != nil {
		// Nothing removes the stored object, it stays pinned without metadata
		zap.L().Error("Inconsistency: stored object has no metadata record",
			zap.String("ipfsLink", link),
			zap.String("username", req.Username),
			zap.String("projectName", req.ProjectName),
			zap.Error(err))

		return nil, &UploadError{StageRecorded, err}
	}

	return &UploadResult{
		ShortLink: strings.TrimSuffix(u.ShortLinkBase, "/") + "/" + rec.ShortID,
		IPFSLink:  link,
		Record:    rec,
	}, nil
}

// SaveLink records metadata for content that was stored elsewhere, e.g. on a
// pinning service the client talked to directly
func (u *Uploader) SaveLink(ctx context.Context, link, projectName, fileType, username string) (*model.Record, error) {
	return u.record(ctx, link, projectName, fileType, username)
}

func (u *Uploader) record(ctx context.Context, link, projectName, fileType, username string) (*model.Record, error) {
	shortID, err := u.IDs.New()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate short id, %w", db.ErrRecordPersist, err)
	}

	rec := model.NewRecord(shortID, link, projectName, fileType, username)
	if err := u.Store.Insert(ctx, rec); err != nil {
		return nil, err
	}

	return rec, nil
}
