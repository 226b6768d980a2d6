// Package view drives the user-facing flows of the client: signing in,
// uploading a file and listing the uploads recorded on the ledger.
package view

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"bitbnb/hosting-api/gateway"
	"bitbnb/hosting-api/keychain"
	"bitbnb/hosting-api/ledger"
	"bitbnb/hosting-api/model"
	"bitbnb/hosting-api/session"

	"go.uber.org/zap"
)

const (
	ProvenanceMessage = "Document upload"

	uploadedDateLayout = "2006-01-02T15:04:05.000Z"
)

var ErrNotLoggedIn = errors.New("not logged in")

type SessionStore interface {
	Load() (*session.Session, error)
	Save(s *session.Session) error
	Clear() error
}

type Ledger interface {
	GetAccount(ctx context.Context, username string) (*ledger.Account, error)
	GetHistory(ctx context.Context, username string, window int) ([]ledger.Transaction, error)
}

type Storer interface {
	Store(ctx context.Context, f *gateway.File) (*gateway.Stored, error)
}

type MetadataSaver interface {
	SaveURL(ctx context.Context, r gateway.SaveURLRequest) error
}

type View struct {
	Session       SessionStore
	Signer        keychain.Signer
	Ledger        Ledger
	Gateway       Storer
	Backend       MetadataSaver
	RecordKind    string
	HistoryWindow int
	Out           io.Writer
	Now           func() time.Time
}

func New(s SessionStore, signer keychain.Signer, l Ledger, g Storer, b MetadataSaver) *View {
	return &View{
		Session:       s,
		Signer:        signer,
		Ledger:        l,
		Gateway:       g,
		Backend:       b,
		RecordKind:    ledger.RecordKind,
		HistoryWindow: ledger.DefaultHistoryWindow,
		Out:           os.Stdout,
		Now:           time.Now,
	}
}

func (v *View) Login(ctx context.Context) error {
	username, err := v.Signer.Authenticate(ctx)
	if err != nil {
		switch {
		case errors.Is(err, keychain.ErrExtensionUnavailable):
			v.println("Please install Hive Keychain to log in.")
		default:
			v.printf("Login failed: %v\n", err)
		}

		return err
	}

	if err := v.Session.Save(&session.Session{Username: username}); err != nil {
		zap.L().Error("Failed to save session", zap.Error(err))
		v.printf("Login failed: %v\n", err)
		return err
	}

	zap.L().Info("User logged in", zap.String("username", username))
	v.printf("Logged in as @%s\n", username)

	v.account(ctx, username)
	return nil
}

// Whoami shows the signed-in account
func (v *View) Whoami(ctx context.Context) error {
	s, err := v.current()
	if err != nil {
		return err
	}

	v.printf("Logged in as @%s\n", s.Username)
	v.account(ctx, s.Username)

	return nil
}

func (v *View) Logout() error {
	if err := v.Session.Clear(); err != nil {
		v.printf("Logout failed: %v\n", err)
		return err
	}

	v.println("Logged out.")
	return nil
}

// Upload stores the file at path, records its metadata and submits a
// provenance record to the ledger on behalf of the signed-in user
func (v *View) Upload(ctx context.Context, path, projectName string) error {
	s, err := v.current()
	if err != nil {
		return err
	}

	if projectName == "" {
		v.println("A project name is required.")
		return fmt.Errorf("%w: projectName", model.ErrMissingField)
	}

	name := filepath.Base(path)

	fileType := model.FileTypeFromName(name)
	if fileType == "" {
		v.println("Unsupported file type.")
		return model.ErrFileTypeUnsupported
	}

	data, err := os.ReadFile(path)
	if err != nil {
		v.printf("Could not read %s: %v\n", path, err)
		return err
	}

	if len(data) == 0 {
		v.println("No file uploaded.")
		return fmt.Errorf("%s is empty", path)
	}

	v.printf("Uploading %s...\n", name)

	stored, err := v.Gateway.Store(ctx, &gateway.File{
		Name:        name,
		Data:        data,
		ProjectName: projectName,
		Username:    s.Username,
	})
	if err != nil {
		zap.L().Error("Failed to store file", zap.String("name", name), zap.Error(err))
		v.printf("File upload failed: %v\n", err)
		return err
	}

	if stored.Pinned {
		err := v.Backend.SaveURL(ctx, gateway.SaveURLRequest{
			Link:        stored.Link,
			ProjectName: projectName,
			FileType:    fileType,
			Username:    s.Username,
		})
		if err != nil {
			zap.L().Error("Inconsistency: pinned file has no metadata record", zap.String("link", stored.Link), zap.Error(err))
			v.printf("Warning: the file was stored but its details could not be saved: %v\n", err)
		}
	}

	v.printf("Stored at %s\n", stored.Link)
	if stored.ShortLink != "" {
		v.printf("Short link: %s\n", stored.ShortLink)
	}

	conf, err := v.Signer.SubmitRecord(ctx, s.Username, v.RecordKind, ledger.Provenance{
		Message:      ProvenanceMessage,
		IPFSHash:     stored.Link,
		FileName:     name,
		UploadedDate: v.Now().UTC().Format(uploadedDateLayout),
	})
	if err != nil {
		zap.L().Error("Failed to record upload on the ledger", zap.String("link", stored.Link), zap.Error(err))
		v.printf("The upload was not recorded on the ledger: %v\n", err)
		return err
	}

	if conf.TxID != "" {
		v.printf("Recorded on the ledger in transaction %s\n", conf.TxID)
	} else {
		v.println("Recorded on the ledger.")
	}

	return nil
}

// History lists the signed-in user's recorded uploads, most recent first
func (v *View) History(ctx context.Context) error {
	s, err := v.current()
	if err != nil {
		return err
	}

	txs, err := v.Ledger.GetHistory(ctx, s.Username, v.HistoryWindow)
	if err != nil {
		zap.L().Error("Failed to fetch account history", zap.String("username", s.Username), zap.Error(err))
		v.printf("Could not load history: %v\n", err)
		return err
	}

	records := ledger.FilterProvenance(txs, v.RecordKind)
	if len(records) == 0 {
		v.println("No uploads found.")
		return nil
	}

	w := tabwriter.NewWriter(v.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tFILE\tLINK\tTRANSACTION")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Timestamp.Format(time.DateTime), r.FileName, r.IPFSHash, r.TrxID)
	}

	return w.Flush()
}

func (v *View) current() (*session.Session, error) {
	s, err := v.Session.Load()
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			v.println("Please log in first.")
			return nil, ErrNotLoggedIn
		}

		v.printf("Could not load session: %v\n", err)
		return nil, err
	}

	return s, nil
}

func (v *View) account(ctx context.Context, username string) {
	acc, err := v.Ledger.GetAccount(ctx, username)
	if err != nil {
		zap.L().Warn("Failed to fetch account", zap.String("username", username), zap.Error(err))
		v.printf("Could not load account details: %v\n", err)
		return
	}

	w := tabwriter.NewWriter(v.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Account\t@%s\n", acc.Name)
	fmt.Fprintf(w, "Created\t%s\n", acc.Created.Format(time.DateOnly))
	fmt.Fprintf(w, "Balance\t%s\n", acc.Balance)
	fmt.Fprintf(w, "HBD\t%s\n", acc.HBDBalance)
	fmt.Fprintf(w, "Posts\t%d\n", acc.PostCount)
	w.Flush()
}

func (v *View) printf(format string, a ...any) {
	fmt.Fprintf(v.Out, format, a...)
}

func (v *View) println(s string) {
	fmt.Fprintln(v.Out, s)
}
