package domain

import (
	"time"
)

// Status is a pipeline stage of a content item.
type Status string

const (
	StatusIdea            Status = "idea"
	StatusScriptGenerated Status = "script_generated"
	StatusApproved        Status = "approved"
	StatusScheduled       Status = "scheduled"
	StatusPublished       Status = "published"
)

var statusOrder = []Status{
	StatusIdea,
	StatusScriptGenerated,
	StatusApproved,
	StatusScheduled,
	StatusPublished,
}

// Statuses returns the pipeline stages in pipeline order.
func Statuses() []Status {
	return append([]Status(nil), statusOrder...)
}

func (s Status) Valid() bool {
	for _, v := range statusOrder {
		if s == v {
			return true
		}
	}
	return false
}

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", Invalid("status", "unknown status "+raw)
	}
	return s, nil
}

// Format is the shape of the planned content.
type Format string

const (
	FormatStory    Format = "story"
	FormatVideo    Format = "video"
	FormatLayout   Format = "layout"
	FormatCarousel Format = "carousel"
	FormatReels    Format = "reels"
	FormatText     Format = "text"
	FormatOther    Format = "other"
)

var formats = []Format{FormatStory, FormatVideo, FormatLayout, FormatCarousel, FormatReels, FormatText, FormatOther}

func Formats() []Format { return append([]Format(nil), formats...) }

func (f Format) Valid() bool {
	for _, v := range formats {
		if f == v {
			return true
		}
	}
	return false
}

func ParseFormat(raw string) (Format, error) {
	f := Format(raw)
	if !f.Valid() {
		return "", Invalid("format", "unknown format "+raw)
	}
	return f, nil
}

// Objective is a marketing-funnel stage. Values carry their emoji prefix.
type Objective string

const (
	ObjectiveAttract    Objective = "🟡 Atrair Atenção"
	ObjectiveConnect    Objective = "🟢 Criar Conexão"
	ObjectiveConvert    Objective = "🔴 Fazer Comprar"
	ObjectiveReactivate Objective = "🔁 Reativar Interesse"
	ObjectiveBrand      Objective = "✅ Fixar Marca"
)

var objectives = []Objective{ObjectiveAttract, ObjectiveConnect, ObjectiveConvert, ObjectiveReactivate, ObjectiveBrand}

// Objectives returns the funnel stages, top of funnel first.
func Objectives() []Objective { return append([]Objective(nil), objectives...) }

func (o Objective) Valid() bool {
	for _, v := range objectives {
		if o == v {
			return true
		}
	}
	return false
}

func ParseObjective(raw string) (Objective, error) {
	o := Objective(raw)
	if !o.Valid() {
		return "", Invalid("objective", "unknown objective "+raw)
	}
	return o, nil
}

// Distribution is the channel the content is published on.
type Distribution string

const (
	DistributionInstagram Distribution = "Instagram"
	DistributionYouTube   Distribution = "YouTube"
	DistributionTikTok    Distribution = "TikTok"
	DistributionBlog      Distribution = "Blog"
	DistributionMultiple  Distribution = "Multiple"
	DistributionOther     Distribution = "Other"
)

var distributions = []Distribution{DistributionInstagram, DistributionYouTube, DistributionTikTok, DistributionBlog, DistributionMultiple, DistributionOther}

func Distributions() []Distribution { return append([]Distribution(nil), distributions...) }

func (d Distribution) Valid() bool {
	for _, v := range distributions {
		if d == v {
			return true
		}
	}
	return false
}

func ParseDistribution(raw string) (Distribution, error) {
	d := Distribution(raw)
	if !d.Valid() {
		return "", Invalid("distribution", "unknown distribution "+raw)
	}
	return d, nil
}

// Defaults applied on create when the partial item leaves an enum unset.
const (
	DefaultStatus       = StatusIdea
	DefaultFormat       = FormatCarousel
	DefaultObjective    = ObjectiveAttract
	DefaultDistribution = DistributionInstagram
)

// ScriptSnapshot is the denormalized copy of the linked script.
type ScriptSnapshot struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content,omitempty"`
}

// Item is a unit of planned content.
type Item struct {
	ID              string          `json:"id"`
	CreatedByID     string          `json:"created_by_id"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	Tags            []string        `json:"tags"`
	Format          Format          `json:"format"`
	Objective       Objective       `json:"objective"`
	Distribution    Distribution    `json:"distribution"`
	Status          Status          `json:"status"`
	ScriptID        *string         `json:"script_id,omitempty"`
	Script          *ScriptSnapshot `json:"script,omitempty"`
	EquipmentID     *string         `json:"equipment_id,omitempty"`
	EquipmentName   *string         `json:"equipment_name,omitempty"`
	ResponsibleID   *string         `json:"responsible_id,omitempty"`
	ResponsibleName *string         `json:"responsible_name,omitempty"`
	ScheduledDate   *time.Time      `json:"scheduled_date,omitempty"`
	CalendarEventID *string         `json:"calendar_event_id,omitempty"`
	AIGenerated     bool            `json:"ai_generated"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ItemPatch supplies a subset of an item's fields. Nil means "leave unchanged".
// A pointer to an empty string (or a zero date) clears a nullable association.
type ItemPatch struct {
	Title           *string         `json:"title,omitempty"`
	Description     *string         `json:"description,omitempty"`
	Tags            *[]string       `json:"tags,omitempty"`
	Format          *Format         `json:"format,omitempty"`
	Objective       *Objective      `json:"objective,omitempty"`
	Distribution    *Distribution   `json:"distribution,omitempty"`
	Status          *Status         `json:"status,omitempty"`
	ScriptID        *string         `json:"script_id,omitempty"`
	Script          *ScriptSnapshot `json:"script,omitempty"`
	EquipmentID     *string         `json:"equipment_id,omitempty"`
	ResponsibleID   *string         `json:"responsible_id,omitempty"`
	ScheduledDate   *time.Time      `json:"scheduled_date,omitempty"`
	CalendarEventID *string         `json:"calendar_event_id,omitempty"`
	AIGenerated     *bool           `json:"ai_generated,omitempty"`
}

// Column is one pipeline stage of the board.
type Column struct {
	Status Status `json:"status"`
	Title  string `json:"title"`
	Icon   string `json:"icon"`
	Items  []Item `json:"items"`
}

// Filter constrains a projection. A nil or empty field places no constraint.
type Filter struct {
	Statuses      []Status      `json:"statuses,omitempty"`
	Objective     *Objective    `json:"objective,omitempty"`
	Distribution  *Distribution `json:"distribution,omitempty"`
	Format        *Format       `json:"format,omitempty"`
	EquipmentID   *string       `json:"equipment_id,omitempty"`
	ResponsibleID *string       `json:"responsible_id,omitempty"`
	DateFrom      *time.Time    `json:"date_from,omitempty"`
	DateTo        *time.Time    `json:"date_to,omitempty"`
}

// Equipment is a catalog entry items may reference.
type Equipment struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Responsible is a person items may be assigned to.
type Responsible struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}
