package syncclient

import "encoding/json"

// Merge overlays local on server. Sections present locally replace the
// server's wholesale, except ratings, which are united by week id with the
// local week winning.
func Merge(server, local Payload) Payload {
	merged := make(Payload, len(server)+len(local))
	for k, v := range server {
		merged[k] = v
	}
	for k, v := range local {
		merged[k] = v
	}

	s, okS := server[SectionRatings]
	l, okL := local[SectionRatings]
	if okS && okL {
		merged[SectionRatings] = MergeRatings(s, l)
	}
	return merged
}

// MergeRatings unites two week-id keyed rating documents, local winning on
// collisions. If either side is not an object, local is returned unchanged.
func MergeRatings(server, local json.RawMessage) json.RawMessage {
	var s, l map[string]json.RawMessage
	if err := json.Unmarshal(server, &s); err != nil || s == nil {
		return local
	}
	if err := json.Unmarshal(local, &l); err != nil || l == nil {
		return local
	}

	for id, week := range l {
		s[id] = week
	}
	out, err := json.Marshal(s)
	if err != nil {
		return local
	}
	return out
}
