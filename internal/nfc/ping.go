package nfc

import "encoding/json"

// Ping is one scan-log entry. Extra carries any fields beyond the core set;
// they are flattened into the same JSON object so foreign readers round-trip
// unchanged.
type Ping struct {
	TagID     string  `json:"tag_id"`
	Action    string  `json:"action"`
	TaskTitle *string `json:"task_title"`
	TaskIndex *int    `json:"task_index"`
	NewStatus *int    `json:"new_status"`
	Reader    string  `json:"reader"`
	Timestamp string  `json:"timestamp"`

	Extra map[string]any `json:"-"`
}

type pingCore Ping

func (p Ping) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(pingCore(p))
	if err != nil {
		return nil, err
	}
	if len(p.Extra) == 0 {
		return b, nil
	}
	var merged map[string]any
	if err := json.Unmarshal(b, &merged); err != nil {
		return nil, err
	}
	for k, v := range p.Extra {
		if _, taken := merged[k]; !taken {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

var pingCoreKeys = map[string]bool{
	"tag_id": true, "action": true, "task_title": true,
	"task_index": true, "new_status": true, "reader": true, "timestamp": true,
}

func (p *Ping) UnmarshalJSON(data []byte) error {
	var core pingCore
	if err := json.Unmarshal(data, &core); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	*p = Ping(core)
	for k := range all {
		if pingCoreKeys[k] {
			continue
		}
		if p.Extra == nil {
			p.Extra = map[string]any{}
		}
		p.Extra[k] = all[k]
	}
	return nil
}
