// Package model defines the canonical subject/image/conversation record set
// shared between the store, the enrichment pipeline and the analytics surface.
package model

import (
	"time"
)

// SubjectType identifies which of the two logical collections a subject
// belongs to.
type SubjectType string

const (
	SubjectTypePlant  SubjectType = "plant"
	SubjectTypeFlower SubjectType = "flower"
)

// Collection returns the collection name for this subject type.
func (s SubjectType) Collection() string {
	if s == SubjectTypeFlower {
		return "flowers"
	}
	return "plants"
}

// Message roles.
const (
	RoleUser  = "user"
	RolePlant = "plant"
)

// Care action identifiers recorded in a profile's care history.
const (
	ActionWatered    = "watered"
	ActionFertilized = "fertilized"
	ActionRepotted   = "repotted"
)

// Health status values derived from the growth trend.
const (
	HealthThriving = "thriving"
	HealthStable   = "stable"
	HealthStressed = "stressed"
)

// Image is a single uploaded photo of a subject. Area is nil until background
// analysis completes; afterwards it holds the green-pixel-ratio estimate in
// [0,1]. The position of an image within Subject.Images is temporal and must
// never be reordered, growth and similarity are computed against the
// immediate predecessor.
type Image struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploadedAt"`
	Area       *float64  `json:"area"`
	SourceURL  *string   `json:"sourceUrl,omitempty"`
}

// Message is one turn of a subject's conversation. A placeholder plant
// message is created synchronously at upload time and later overwritten in
// place by ID once enrichment completes.
type Message struct {
	ID          string    `json:"id"`
	Role        string    `json:"role"`
	Text        string    `json:"text"`
	TextEN      string    `json:"text_en,omitempty"`
	TextKN      string    `json:"text_kn,omitempty"`
	Time        time.Time `json:"time"`
	ImageID     *string   `json:"imageId"`
	GrowthDelta *float64  `json:"growthDelta"`
}

// CareEvent is a single recorded care action.
type CareEvent struct {
	Date   time.Time `json:"date"`
	Action string    `json:"action"`
	Notes  string    `json:"notes"`
}

// Profile holds derived care knowledge about a subject. It is lazily created
// on first access and mutated whenever a new user message is processed.
type Profile struct {
	AdoptedDate       time.Time   `json:"adoptedDate"`
	UserCareStyle     string      `json:"userCareStyle"`
	PreferredLight    string      `json:"preferredLight"`
	WateringFrequency string      `json:"wateringFrequency"`
	LastWatered       *time.Time  `json:"lastWatered"`
	LastFertilized    *time.Time  `json:"lastFertilized"`
	LastRepotted      *time.Time  `json:"lastRepotted"`
	CareHistory       []CareEvent `json:"careHistory"`
	HealthStatus      string      `json:"healthStatus"`
	CareScore         int         `json:"careScore"`
}

// Identification is the latest remote or heuristic species verdict for a
// subject.
type Identification struct {
	Species     string   `json:"species"`
	Probability *float64 `json:"probability"`
}

// Subject is a tracked plant or flower with photos and conversation history.
// Its identity is stable even when it moves between collections.
type Subject struct {
	ID             string          `json:"id"`
	Species        string          `json:"species"`
	Nickname       string          `json:"nickname"`
	Location       string          `json:"location,omitempty"`
	Owner          string          `json:"owner,omitempty"`
	Images         []Image         `json:"images"`
	Conversations  []Message       `json:"conversations"`
	Profile        *Profile        `json:"profile,omitempty"`
	Identification *Identification `json:"identification,omitempty"`
}

// ImageByID returns a pointer to the image with the given ID, or nil.
func (s *Subject) ImageByID(id string) *Image {
	for i := range s.Images {
		if s.Images[i].ID == id {
			return &s.Images[i]
		}
	}
	return nil
}

// PreviousImage returns the image immediately preceding the image with the
// given ID in upload order, or nil when it is the first image or unknown.
func (s *Subject) PreviousImage(id string) *Image {
	for i := range s.Images {
		if s.Images[i].ID == id {
			if i == 0 {
				return nil
			}
			return &s.Images[i-1]
		}
	}
	return nil
}

// MessageByID returns a pointer to the conversation entry with the given ID,
// or nil.
func (s *Subject) MessageByID(id string) *Message {
	for i := range s.Conversations {
		if s.Conversations[i].ID == id {
			return &s.Conversations[i]
		}
	}
	return nil
}

// Document is the whole shared record set. The store owns the canonical
// representation; everything else works on snapshots.
type Document struct {
	Plants  []*Subject `json:"plants"`
	Flowers []*Subject `json:"flowers"`
}

// FindSubject locates a subject by ID in either collection and reports which
// collection it currently lives in.
func (d *Document) FindSubject(id string) (*Subject, SubjectType) {
	for _, s := range d.Plants {
		if s.ID == id {
			return s, SubjectTypePlant
		}
	}
	for _, s := range d.Flowers {
		if s.ID == id {
			return s, SubjectTypeFlower
		}
	}
	return nil, ""
}

// MoveSubject moves the subject with the given ID to the destination
// collection. The move appends to the destination first and guards against
// double insertion when the subject is already present there. It returns true
// when the document changed.
func (d *Document) MoveSubject(id string, dest SubjectType) bool {
	subject, current := d.FindSubject(id)
	if subject == nil || current == dest {
		return false
	}

	src, dst := &d.Plants, &d.Flowers
	if dest == SubjectTypePlant {
		src, dst = &d.Flowers, &d.Plants
	}

	present := false
	for _, s := range *dst {
		if s.ID == id {
			present = true
			break
		}
	}
	if !present {
		*dst = append(*dst, subject)
	}

	for i, s := range *src {
		if s.ID == id {
			*src = append((*src)[:i], (*src)[i+1:]...)
			break
		}
	}
	return true
}

// Prune removes subjects with zero images from both collections and returns
// how many were dropped.
func (d *Document) Prune() int {
	dropped := 0
	prune := func(in []*Subject) []*Subject {
		out := in[:0]
		for _, s := range in {
			if len(s.Images) == 0 {
				dropped++
				continue
			}
			out = append(out, s)
		}
		return out
	}
	d.Plants = prune(d.Plants)
	d.Flowers = prune(d.Flowers)
	return dropped
}
