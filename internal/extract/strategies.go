package extract

import (
	"encoding/base64"
	"encoding/json"
	"regexp"

	"github.com/mandalnilabja/drawgate/internal/types"
)

var (
	keyedDataRe = regexp.MustCompile(`"data"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	plausibleRe = regexp.MustCompile(`^[A-Za-z0-9+/]+={0,2}$`)
)

// KeyedData matches string values under a "data" key at any depth, in
// document order.
type KeyedData struct{}

func (KeyedData) Name() string { return "keyed-data" }

func (KeyedData) Find(doc []byte) (*types.ExtractedImage, bool) {
	for _, m := range keyedDataRe.FindAllSubmatch(doc, -1) {
		var value string
		// the capture is a JSON string body; unescape sequences like \/
		if err := json.Unmarshal(append(append([]byte{'"'}, m[1]...), '"'), &value); err != nil {
			continue
		}
		if !plausibleRe.MatchString(value) {
			continue
		}
		if data, ok := decode(value); ok {
			return &types.ExtractedImage{Data: data}, true
		}
	}
	return nil, false
}

// LongRun accepts the first maximal run of base64 alphabet characters at
// least MinRun long that decodes.
type LongRun struct {
	MinRun int
}

func (LongRun) Name() string { return "long-run" }

func (l LongRun) Find(doc []byte) (*types.ExtractedImage, bool) {
	start := -1
	for i := 0; i <= len(doc); i++ {
		if i < len(doc) && isBase64Char(doc[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start < 0 {
			continue
		}
		run := doc[start:i]
		start = -1
		if len(run) < l.MinRun {
			continue
		}
		if data, ok := decode(string(run)); ok {
			return &types.ExtractedImage{
				Data:          data,
				NearThreshold: len(run)*2 < l.MinRun*3,
			}, true
		}
	}
	return nil, false
}

func isBase64Char(c byte) bool {
	return (c >= 'A' && c <= 'Z') ||
		(c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') ||
		c == '+' || c == '/' || c == '='
}

// decode accepts padded or unpadded standard base64.
func decode(s string) ([]byte, bool) {
	if s == "" {
		return nil, false
	}
	if data, err := base64.StdEncoding.DecodeString(s); err == nil && len(data) > 0 {
		return data, true
	}
	if data, err := base64.RawStdEncoding.DecodeString(s); err == nil && len(data) > 0 {
		return data, true
	}
	return nil, false
}
