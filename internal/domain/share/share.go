// Package share encodes workspaces into URL tokens and back.
//
// Two formats are understood:
//
//	legacy:  base64(JSON {html, css, javascript})
//	compact: "z." + base64url(deflate(JSON {html, css, javascript}))
//
// Legacy tokens are what the original share links carry in their ?code=
// parameter. Those links were built with btoa, so their JSON is Latin-1
// rather than UTF-8. A legacy token is written as Latin-1 whenever the text
// fits and the bytes cannot be mistaken for UTF-8, and as UTF-8 otherwise;
// decoding reads UTF-8 when the bytes are valid UTF-8 and Latin-1 when not.
// Compact tokens are what Encode produces by default.
package share

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/flate"
	"golang.org/x/text/encoding/charmap"

	"github.com/GriffinCanCode/livebox/internal/shared/types"
)

// CompactPrefix marks deflated tokens
const CompactPrefix = "z."

// MaxDecodedSize caps the JSON a token may expand to
const MaxDecodedSize = 4 << 20

var (
	ErrInvalidToken  = errors.New("invalid share token")
	ErrTokenTooLarge = errors.New("share token expands beyond the size limit")
)

// Format selects the token encoding
type Format string

const (
	FormatLegacy  Format = "legacy"
	FormatCompact Format = "compact"
)

// payload keeps the original field names so legacy links keep working
type payload struct {
	HTML       string `json:"html"`
	CSS        string `json:"css"`
	JavaScript string `json:"javascript"`
}

// Encode renders a bundle as a token in the given format
func Encode(bundle types.SourceBundle, format Format) (string, error) {
	data, err := sonic.Marshal(payload{HTML: bundle.Markup, CSS: bundle.Style, JavaScript: bundle.Script})
	if err != nil {
		return "", fmt.Errorf("encode share payload: %w", err)
	}

	switch format {
	case FormatLegacy:
		return base64.StdEncoding.EncodeToString(toLatin1(data)), nil
	case FormatCompact, "":
		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, flate.BestCompression)
		if err != nil {
			return "", err
		}
		if _, err := w.Write(data); err != nil {
			return "", err
		}
		if err := w.Close(); err != nil {
			return "", err
		}
		return CompactPrefix + base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
	default:
		return "", fmt.Errorf("unknown share format %q", format)
	}
}

// Decode parses a token of either format. Fragments missing from the token
// come back empty; use Apply to merge them over a current bundle.
func Decode(token string) (types.SourceBundle, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return types.SourceBundle{}, fmt.Errorf("%w: empty", ErrInvalidToken)
	}

	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(token, CompactPrefix) {
		data, err = inflate(strings.TrimPrefix(token, CompactPrefix))
	} else {
		data, err = decodeLegacy(token)
	}
	if err != nil {
		return types.SourceBundle{}, err
	}

	var p payload
	if err := sonic.Unmarshal(data, &p); err != nil {
		return types.SourceBundle{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return types.SourceBundle{Markup: p.HTML, Style: p.CSS, Script: p.JavaScript}, nil
}

// Apply overlays the non-empty fragments of shared onto current, the way
// opening a share link only replaces the editors it carries text for
func Apply(current, shared types.SourceBundle) types.SourceBundle {
	if shared.Markup != "" {
		current.Markup = shared.Markup
	}
	if shared.Style != "" {
		current.Style = shared.Style
	}
	if shared.Script != "" {
		current.Script = shared.Script
	}
	return current
}

func decodeLegacy(token string) ([]byte, error) {
	// A '+' that went through query unescaping arrives as a space
	token = strings.ReplaceAll(token, " ", "+")

	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if enc.DecodedLen(len(token)) > MaxDecodedSize {
			return nil, ErrTokenTooLarge
		}
		if data, err := enc.DecodeString(token); err == nil {
			return fromLatin1(data)
		}
	}
	return nil, fmt.Errorf("%w: not base64", ErrInvalidToken)
}

// toLatin1 returns the btoa form of data when decoding can tell it apart
// from UTF-8, and data unchanged otherwise
func toLatin1(data []byte) []byte {
	latin1, err := charmap.ISO8859_1.NewEncoder().Bytes(data)
	if err != nil || utf8.Valid(latin1) {
		return data
	}
	return latin1
}

func fromLatin1(data []byte) ([]byte, error) {
	if utf8.Valid(data) {
		return data, nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return out, nil
}

func inflate(body string) ([]byte, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close()

	data, err := io.ReadAll(io.LimitReader(r, MaxDecodedSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if len(data) > MaxDecodedSize {
		return nil, ErrTokenTooLarge
	}
	return data, nil
}
