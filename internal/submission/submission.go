// Package submission defines the immutable unit of classification: one
// user-submitted comment plus the metadata the intake form captured with it.
package submission

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
)

// Submission is one comment awaiting moderation. The pipeline never mutates
// it; callers construct it once from the intake request and pass it down.
type Submission struct {
	ID          string    `json:"id,omitempty"`
	Content     string    `json:"content"`
	AuthorName  string    `json:"author_name"`
	AuthorEmail string    `json:"author_email"`
	AuthorURL   string    `json:"author_url,omitempty"`
	OriginIP    string    `json:"origin_ip"`
	SubmittedAt time.Time `json:"submitted_at"`

	// Honeypot holds the value of the hidden form field. Humans leave it
	// empty; bots that auto-fill every input do not.
	Honeypot string `json:"honeypot,omitempty"`

	// ElapsedSeconds is the measured time between form render and submit.
	// Nil when the intake form could not measure it.
	ElapsedSeconds *int `json:"elapsed_seconds,omitempty"`

	// Registered marks an authenticated, already-trusted author. Subject to
	// the skip-registered toggle, these bypass classification entirely.
	Registered bool `json:"registered,omitempty"`
}

// EnsureID assigns a fresh UUID if the caller did not supply one.
func (s *Submission) EnsureID() {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
}

// Validate reports the contract errors the pipeline treats as fatal. A
// submission without content or a timestamp is a caller bug, not spam.
func (s *Submission) Validate() error {
	if s.Content == "" {
		return fmt.Errorf("submission %s: missing content", s.ID)
	}
	if s.SubmittedAt.IsZero() {
		return fmt.Errorf("submission %s: missing submitted_at", s.ID)
	}
	return nil
}

// Fingerprint derives the stable identifier used to deduplicate audit
// records. It covers the fields a retried webhook replays unchanged, so a
// double form post maps to one record while an edited comment does not.
func (s *Submission) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(s.Content))
	h.Write([]byte{0})
	h.Write([]byte(s.AuthorEmail))
	h.Write([]byte{0})
	fmt.Fprintf(h, "%d", s.SubmittedAt.Unix())
	return hex.EncodeToString(h.Sum(nil))
}

// ExtractLinks returns the anchor hrefs found in HTML content, for the audit
// record's explanation metadata. Scoring itself works on the raw text; this
// exists so a reviewer looking at a flagged comment sees where it pointed.
func ExtractLinks(content string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil
	}
	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok && href != "" {
			links = append(links, href)
		}
	})
	return links
}
