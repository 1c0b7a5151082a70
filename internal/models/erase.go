package models

import "time"

// RegionMask describes what to erase: either rectangles that are rendered into a
// mask, or a mask image supplied by the client (white = erase).
type RegionMask struct {
	Rects     []Rect `json:"rects,omitempty"`
	MaskImage []byte `json:"-"`
}

// Empty reports whether the mask selects nothing.
func (m RegionMask) Empty() bool {
	if len(m.MaskImage) > 0 {
		return false
	}
	for _, r := range m.Rects {
		if !r.Empty() {
			return false
		}
	}
	return true
}

// EraseJob is one inpainting call. RequestID is a lookup key only.
type EraseJob struct {
	ID             string     `json:"jobId"`
	RequestID      string     `json:"requestId"`
	AccountKey     string     `json:"-"`
	Region         RegionMask `json:"region"`
	UpstreamTaskID string     `json:"-"`
	Status         JobStatus  `json:"status"`
	ResultImageRef string     `json:"resultImageRef,omitempty"`
	Error          *ErrorInfo `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (j *EraseJob) Clone() *EraseJob {
	if j == nil {
		return nil
	}
	out := *j
	out.Region.Rects = append([]Rect(nil), j.Region.Rects...)
	if j.Error != nil {
		e := *j.Error
		out.Error = &e
	}
	return &out
}
