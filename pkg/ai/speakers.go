package ai

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
)

// The speaker-listing endpoint is served in three shapes in the wild:
// a bare array of names, an object wrapping such an array, or an object keyed
// by name. Each shape gets its own decode; all feed NormalizeSpeakers.

type speakerListVariant int

const (
	speakerListBare speakerListVariant = iota
	speakerListWrapped
	speakerListKeyed
)

func decodeSpeakerList(data []byte) ([]string, error) {
	for _, variant := range []speakerListVariant{speakerListBare, speakerListWrapped, speakerListKeyed} {
		names, err := decodeSpeakerVariant(variant, data)
		if err == nil {
			return names, nil
		}
	}
	return nil, fmt.Errorf("unrecognized speaker list shape")
}

func decodeSpeakerVariant(variant speakerListVariant, data []byte) ([]string, error) {
	switch variant {
	case speakerListBare:
		var names []string
		if err := json.Unmarshal(data, &names); err != nil {
			return nil, err
		}
		return names, nil
	case speakerListWrapped:
		var wrapped struct {
			Speakers []string `json:"speakers"`
			Voices   []string `json:"voices"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, err
		}
		if wrapped.Speakers == nil && wrapped.Voices == nil {
			return nil, fmt.Errorf("no wrapped speaker list")
		}
		return append(wrapped.Speakers, wrapped.Voices...), nil
	case speakerListKeyed:
		var keyed map[string]json.RawMessage
		if err := json.Unmarshal(data, &keyed); err != nil {
			return nil, err
		}
		names := make([]string, 0, len(keyed))
		for name := range keyed {
			names = append(names, name)
		}
		return names, nil
	}
	return nil, fmt.Errorf("unknown speaker list variant %d", variant)
}

// NormalizeSpeakers strips file extensions, drops blanks and duplicates, and
// sorts the result.
func NormalizeSpeakers(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	res := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if ext := path.Ext(name); ext != "" {
			name = strings.TrimSuffix(name, ext)
		}
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}
