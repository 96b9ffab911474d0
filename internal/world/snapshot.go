package world

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/san-kum/jointsim/internal/body"
	"github.com/san-kum/jointsim/internal/joint"
)

const snapshotVersion = 1

// Snapshot is the persisted form of a world. Bodies and joints are stored
// in slot order and joints reference bodies by position in Bodies, so a
// restored world keeps the relative order that fixes solver results.
type Snapshot struct {
	Version int           `json:"version"`
	Config  Config        `json:"config"`
	Time    float64       `json:"time"`
	LastDt  float64       `json:"last_dt"`
	Bodies  []body.Body   `json:"bodies"`
	Joints  []JointRecord `json:"joints"`
	Ramps   []RampRecord  `json:"ramps,omitempty"`
}

type JointRecord struct {
	Kind   joint.Kind      `json:"kind"`
	Body1  int             `json:"body1"`
	Body2  int             `json:"body2"`
	Params json.RawMessage `json:"params"`
}

type RampRecord struct {
	Body    int     `json:"body"`
	Ramp    Ramp    `json:"ramp"`
	Elapsed float64 `json:"elapsed"`
}

func (w *World) Snapshot() (*Snapshot, error) {
	s := &Snapshot{
		Version: snapshotVersion,
		Config:  w.cfg,
		Time:    w.time,
		LastDt:  w.lastDt,
	}

	index := make(map[body.Handle]int, w.bodies.Len())
	w.bodies.Each(func(h body.Handle, b *body.Body) bool {
		index[h] = len(s.Bodies)
		s.Bodies = append(s.Bodies, *b)
		return true
	})

	var err error
	w.joints.Each(func(h joint.Handle, j *joint.Joint) bool {
		var params []byte
		params, err = json.Marshal(j.Constraint)
		if err != nil {
			err = fmt.Errorf("encode %s: %w", h, err)
			return false
		}
		s.Joints = append(s.Joints, JointRecord{
			Kind:   j.Kind(),
			Body1:  index[j.Body1],
			Body2:  index[j.Body2],
			Params: params,
		})
		return true
	})
	if err != nil {
		return nil, err
	}

	for h, r := range w.ramps {
		s.Ramps = append(s.Ramps, RampRecord{Body: index[h], Ramp: r.Ramp, Elapsed: r.elapsed})
	}
	sort.Slice(s.Ramps, func(a, b int) bool { return s.Ramps[a].Body < s.Ramps[b].Body })
	return s, nil
}

// Restore rebuilds a world from a snapshot.
func Restore(s *Snapshot, opts ...Option) (*World, error) {
	if s.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: version %d", ErrSnapshot, s.Version)
	}
	w := New(s.Config, opts...)
	w.time = s.Time
	w.lastDt = s.LastDt

	handles := make([]body.Handle, len(s.Bodies))
	for i, b := range s.Bodies {
		h, err := w.AddBody(b)
		if err != nil {
			return nil, fmt.Errorf("%w: body %d: %v", ErrSnapshot, i, err)
		}
		handles[i] = h
	}

	lookup := func(i int) (body.Handle, error) {
		if i < 0 || i >= len(handles) {
			return body.Handle{}, fmt.Errorf("%w: body index %d out of range", ErrSnapshot, i)
		}
		return handles[i], nil
	}

	for i, rec := range s.Joints {
		b1, err := lookup(rec.Body1)
		if err != nil {
			return nil, err
		}
		b2, err := lookup(rec.Body2)
		if err != nil {
			return nil, err
		}
		c, err := decodeConstraint(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: joint %d: %v", ErrSnapshot, i, err)
		}
		if _, err := w.AddJoint(b1, b2, c); err != nil {
			return nil, fmt.Errorf("%w: joint %d: %v", ErrSnapshot, i, err)
		}
	}

	for _, rec := range s.Ramps {
		h, err := lookup(rec.Body)
		if err != nil {
			return nil, err
		}
		fr, err := newForceRamp(rec.Ramp, rec.Elapsed)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSnapshot, err)
		}
		w.ramps[h] = fr
	}
	return w, nil
}

func decodeConstraint(rec JointRecord) (joint.Constraint, error) {
	switch rec.Kind {
	case joint.KindSpring:
		s := &joint.SpringJoint{}
		if err := json.Unmarshal(rec.Params, s); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown joint kind %q", rec.Kind)
	}
}

func (w *World) WriteSnapshot(out io.Writer) error {
	s, err := w.Snapshot()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func ReadSnapshot(in io.Reader, opts ...Option) (*World, error) {
	var s Snapshot
	if err := json.NewDecoder(in).Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshot, err)
	}
	return Restore(&s, opts...)
}
