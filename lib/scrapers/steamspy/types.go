package steamspy

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexInt decodes a numeric field that SteamSpy emits inconsistently:
// sometimes a number, sometimes a numeric string, sometimes "", null or
// an absent key. Anything non-numeric leaves the value unset instead of
// failing the record.
type FlexInt struct {
	Value int64
	Valid bool
}

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return nil
		}
		s = strings.TrimSpace(str)
		if s == "" {
			return nil
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		fv, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return nil
		}
		f.Value = int64(fv)
		f.Valid = true
		return nil
	}
	f.Value = v
	f.Valid = true
	return nil
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(f.Value, 10)), nil
}

// Ptr returns the value as a nullable pointer.
func (f FlexInt) Ptr() *int64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

type TagVote struct {
	Name  string
	Votes int64
}

// TagVotes preserves the upstream ordering of the tags object, which
// keeps surrogate id assignment deterministic downstream. SteamSpy
// sends either `{"Action": 123, ...}` or an empty array when an app
// has no tags; both shapes decode to the same representation.
type TagVotes []TagVote

func (t *TagVotes) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil
	}

	switch delim {
	case '{':
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return err
			}
			key, _ := keyTok.(string)

			var votes FlexInt
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return err
			}
			// decode errors leave votes unset, which reads as 0
			_ = votes.UnmarshalJSON(raw)
			*t = append(*t, TagVote{Name: key, Votes: votes.Value})
		}
	case '[':
		// a bare list carries no counts, they default to 0
		for dec.More() {
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return err
			}
			var name string
			if err := json.Unmarshal(raw, &name); err != nil {
				continue
			}
			*t = append(*t, TagVote{Name: name})
		}
	}
	return nil
}

func (t TagVotes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, tag := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(tag.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatInt(tag.Votes, 10))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Record is the raw, sparse per-app response. It is created by one
// successful fetch, cached verbatim as JSONL between pipeline stages
// and consumed exactly once by the normalizer.
type Record struct {
	AppID          int64    `json:"appid"`
	Name           string   `json:"name"`
	Developer      string   `json:"developer"`
	Publisher      string   `json:"publisher"`
	ScoreRank      FlexInt  `json:"score_rank"`
	Owners         string   `json:"owners"`
	AverageForever FlexInt  `json:"average_forever"`
	Average2Weeks  FlexInt  `json:"average_2weeks"`
	MedianForever  FlexInt  `json:"median_forever"`
	Median2Weeks   FlexInt  `json:"median_2weeks"`
	CCU            FlexInt  `json:"ccu"`
	Price          FlexInt  `json:"price"`
	InitialPrice   FlexInt  `json:"initialprice"`
	Discount       FlexInt  `json:"discount"`
	Languages      string   `json:"languages"`
	Genre          string   `json:"genre"`
	Tags           TagVotes `json:"tags"`
}
