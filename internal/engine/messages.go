package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf16"

	"github.com/google/uuid"

	"github.com/dshills/lynxcheck/internal/textutil"
	"github.com/dshills/lynxcheck/pkg/types"
)

// Inbound actions
const (
	ActionStart    = "start"
	ActionSubmit   = "submit_ot"
	ActionAlert    = "alert"
	ActionFinished = "finished"
	ActionError    = "error"
	ActionEmotions = "emotions"
)

var clientSupports = []string{
	"free_clarity_alerts",
	"readability_check",
	"filler_words_check",
	"sentence_variety_check",
	"free_occasional_premium_alerts",
}

// jsonNode matches one scalar `"key":value,` pair of a raw message
var jsonNode = regexp.MustCompile(`"\w+":(?:"[^"]+"|-?\d+),`)

// ErrEmptyFrame is returned for an inbound frame with no payload
var ErrEmptyFrame = errors.New("empty response")

type initialMessage struct {
	Type            string   `json:"type"`
	DocID           string   `json:"docId"`
	Client          string   `json:"client"`
	ProtocolVersion string   `json:"protocolVersion"`
	ClientSupports  []string `json:"clientSupports"`
	Dialect         string   `json:"dialect"`
	ClientVersion   string   `json:"clientVersion"`
	ExtDomain       string   `json:"extDomain"`
	Action          string   `json:"action"`
	ID              int      `json:"id"`
	SID             int      `json:"sid"`
}

func newInitialMessage() initialMessage {
	return initialMessage{
		Type:            "initial",
		DocID:           uuid.NewString(),
		Client:          "extension_firefox",
		ProtocolVersion: "1.0",
		ClientSupports:  clientSupports,
		Dialect:         "american",
		ClientVersion:   "14.924.2437",
		ExtDomain:       "keep.google.com",
		Action:          ActionStart,
	}
}

type submission struct {
	Changes  []string `json:"ch"`
	Revision int      `json:"rev"`
	ID       int      `json:"id"`
	Action   string   `json:"action"`
}

func newSubmission(text string) submission {
	return submission{
		Changes: []string{"+0:0:" + text + ":0"},
		Action:  ActionSubmit,
	}
}

// response is the envelope shared by every inbound message
type response struct {
	Action string `json:"action"`
	Error  string `json:"error"`
}

func decodeResponse(data []byte) (response, error) {
	var r response
	if len(strings.TrimSpace(string(data))) == 0 {
		return r, ErrEmptyFrame
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("failed to decode response: %w", err)
	}
	return r, nil
}

type cardLayout struct {
	UserMuteCategoryDescription string `json:"userMuteCategoryDescription"`
}

// alertPayload is the body of an "alert" message.
// Highlight offsets count UTF-16 code units of the submitted text.
type alertPayload struct {
	Group          string      `json:"group"`
	Title          string      `json:"title"`
	Category       string      `json:"category"`
	CategoryHuman  string      `json:"categoryHuman"`
	PName          string      `json:"pname"`
	Details        string      `json:"details"`
	Explanation    string      `json:"explanation"`
	Hidden         bool        `json:"hidden"`
	Text           string      `json:"text"`
	HighlightBegin int         `json:"highlightBegin"`
	HighlightEnd   int         `json:"highlightEnd"`
	Replacements   []string    `json:"replacements"`
	CardLayout     *cardLayout `json:"cardLayout"`
}

func decodeAlert(data []byte) (alertPayload, error) {
	var a alertPayload
	if err := json.Unmarshal(data, &a); err != nil {
		return a, fmt.Errorf("failed to decode alert: %w", err)
	}
	return a, nil
}

// toAlert converts the payload into the checked text's byte coordinates
func (a alertPayload) toAlert(checked string) types.Alert {
	category := a.category()
	title := strings.TrimSpace(a.Title)
	if title == "" {
		title = category
	}
	start := utf16ToByteOffset(checked, a.HighlightBegin)
	end := utf16ToByteOffset(checked, a.HighlightEnd)
	return types.Alert{
		Group:        a.group(),
		Title:        title,
		Category:     category,
		Description:  a.description(),
		Content:      a.Text,
		Range:        types.NewRange(start, end),
		Replacements: append([]string(nil), a.Replacements...),
		Facultative:  a.Hidden,
	}
}

func (a alertPayload) group() string {
	words := textutil.SplitCamelCase(a.Group)
	for i := 1; i < len(words); i++ {
		words[i] = strings.ToLower(words[i])
	}
	return strings.Join(words, " ")
}

func (a alertPayload) category() string {
	switch {
	case strings.Contains(a.PName, "WPCRedundantComma"), strings.Contains(a.PName, "WPCRedComma"):
		return "redundant comma"
	case strings.Contains(a.PName, "WPCMissingComma"):
		return "missing comma"
	case strings.TrimSpace(a.CategoryHuman) != "":
		return a.CategoryHuman
	}
	return strings.ToLower(strings.Join(textutil.SplitCamelCase(a.Category), " "))
}

func (a alertPayload) description() string {
	parts := []string{a.Explanation, a.Details}
	if a.CardLayout != nil {
		parts = append(parts, a.CardLayout.UserMuteCategoryDescription)
	}
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// utf16ToByteOffset maps an offset in UTF-16 code units to a byte offset in s.
// Offsets past the end clamp to len(s).
func utf16ToByteOffset(s string, units int) int {
	if units <= 0 {
		return 0
	}
	n := 0
	for i, r := range s {
		if n >= units {
			return i
		}
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return len(s)
}

// formatLog renders the accumulated raw messages for display
func formatLog(raw string) string {
	return jsonNode.ReplaceAllString(strings.TrimSpace(raw), "${0} ")
}

// debugToken labels log lines for one task
func debugToken(text string) string {
	return textutil.Abbreviate(textutil.CollapseSpace(text), 50)
}
