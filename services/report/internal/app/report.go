// Package app builds the login/upload activity report.
package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"ktassist/pkg/domain"
)

const separator = "============================================================"

// Source is the read side of the activity store.
type Source interface {
	ListLogins(ctx context.Context) ([]domain.LoginRecord, error)
	ListUploads(ctx context.Context) ([]domain.UploadRecord, error)
}

// LoginEntry is the latest login of one identity.
type LoginEntry struct {
	Email     string
	LastLogin time.Time
}

// UploadedFile is one upload row as shown in the report.
type UploadedFile struct {
	Filename   string
	UploadedAt time.Time
}

// UserUploads groups the uploads of one identity, newest first.
type UserUploads struct {
	Email    string
	HasLogin bool
	Files    []UploadedFile
}

// Report is the collected activity. A failed fetch leaves its section empty
// and records the error; the other section is still populated.
type Report struct {
	Logins       []LoginEntry
	LoginErr     error
	Uploads      []UserUploads
	TotalUploads int
	UploadErr    error
	WithLogin    []string
	WithoutLogin []string
}

// Collect reads both record sets and cross-references them.
func Collect(ctx context.Context, src Source) Report {
	var rep Report
	seen := make(map[string]bool)

	logins, err := src.ListLogins(ctx)
	if err != nil {
		rep.LoginErr = err
	}
	index := make(map[string]int)
	for _, l := range logins {
		if l.Email == "" {
			continue
		}
		seen[l.Email] = true
		if i, ok := index[l.Email]; ok {
			// Rows arrive newest first; keep the first one seen.
			if l.LoginTime.After(rep.Logins[i].LastLogin) {
				rep.Logins[i].LastLogin = l.LoginTime
			}
			continue
		}
		index[l.Email] = len(rep.Logins)
		rep.Logins = append(rep.Logins, LoginEntry{Email: l.Email, LastLogin: l.LoginTime})
	}

	uploads, err := src.ListUploads(ctx)
	if err != nil {
		rep.UploadErr = err
		return rep
	}
	rep.TotalUploads = len(uploads)
	groups := make(map[string]int)
	for _, u := range uploads {
		if u.Email == "" || u.Filename == "" {
			continue
		}
		i, ok := groups[u.Email]
		if !ok {
			i = len(rep.Uploads)
			groups[u.Email] = i
			rep.Uploads = append(rep.Uploads, UserUploads{Email: u.Email, HasLogin: seen[u.Email]})
		}
		rep.Uploads[i].Files = append(rep.Uploads[i].Files, UploadedFile{Filename: u.Filename, UploadedAt: u.UploadTime})
	}
	for _, g := range rep.Uploads {
		if g.HasLogin {
			rep.WithLogin = append(rep.WithLogin, g.Email)
		} else {
			rep.WithoutLogin = append(rep.WithoutLogin, g.Email)
		}
	}
	return rep
}

// Render writes the report as plain text.
func Render(w io.Writer, rep Report) error {
	var b strings.Builder

	b.WriteString(separator + "\nUSER LOGINS\n" + separator + "\n")
	switch {
	case rep.LoginErr != nil:
		fmt.Fprintf(&b, "Error fetching user logins: %v\n\n", rep.LoginErr)
	case len(rep.Logins) == 0:
		b.WriteString("No user logins found.\n\n")
	default:
		fmt.Fprintf(&b, "\nTotal unique users who logged in: %d\n\n", len(rep.Logins))
		for i, l := range rep.Logins {
			fmt.Fprintf(&b, "%d. Email: %s\n   Latest login: %s\n\n", i+1, l.Email, formatTime(l.LastLogin))
		}
	}

	b.WriteString(separator + "\nFILE UPLOADS\n" + separator + "\n")
	switch {
	case rep.UploadErr != nil:
		fmt.Fprintf(&b, "Error fetching file uploads: %v\n\n", rep.UploadErr)
	case rep.TotalUploads == 0:
		b.WriteString("No file uploads found.\n\n")
	default:
		fmt.Fprintf(&b, "\nTotal files uploaded: %d\n\n", rep.TotalUploads)
		for _, g := range rep.Uploads {
			status := "No login found"
			if g.HasLogin {
				status = "Has login"
			}
			fmt.Fprintf(&b, "User: %s [%s]\n   Files uploaded: %d\n", g.Email, status, len(g.Files))
			for _, f := range g.Files {
				fmt.Fprintf(&b, "   - %s (uploaded at: %s)\n", f.Filename, formatTime(f.UploadedAt))
			}
			b.WriteString("\n")
		}
		b.WriteString("\nSummary:\n")
		fmt.Fprintf(&b, "   Users with login: %d\n", len(rep.WithLogin))
		for _, email := range rep.WithLogin {
			fmt.Fprintf(&b, "      - %s\n", email)
		}
		fmt.Fprintf(&b, "   Users without login: %d\n", len(rep.WithoutLogin))
		if len(rep.WithoutLogin) > 0 {
			b.WriteString("      These users uploaded files but never logged in:\n")
			for _, email := range rep.WithoutLogin {
				fmt.Fprintf(&b, "      - %s\n", email)
			}
		}
	}
	b.WriteString(separator + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.UTC().Format(time.RFC3339)
}
