// Package profile defines the participant profile entity: identity,
// focus areas, project descriptor, skill inventory, and the cached
// embedding bundle derived from them.
package profile

import (
	"strings"
	"time"
)

// FocusArea is a closed enumeration of participant intents
type FocusArea string

const (
	FocusStartup     FocusArea = "startup"
	FocusResearch    FocusArea = "research"
	FocusSideProject FocusArea = "side_project"
	FocusOpenSource  FocusArea = "open_source"
	FocusLooking     FocusArea = "looking"
)

// FocusAreaOrder fixes the enumeration order used to build focus
// indicator vectors. Two indicator vectors are only comparable
// positionally if they were built against the same order.
var FocusAreaOrder = []FocusArea{
	FocusStartup,
	FocusResearch,
	FocusSideProject,
	FocusOpenSource,
	FocusLooking,
}

// IsValid reports whether the value is a member of the enumeration
func (f FocusArea) IsValid() bool {
	for _, known := range FocusAreaOrder {
		if f == known {
			return true
		}
	}
	return false
}

// ProjectStage describes how far along a participant's project is
type ProjectStage string

const (
	StageIdea     ProjectStage = "idea"
	StageMVP      ProjectStage = "mvp"
	StageLaunched ProjectStage = "launched"
	StageScaling  ProjectStage = "scaling"
)

// SkillSource records where a possessed skill claim came from
type SkillSource string

const (
	SourceResume        SkillSource = "resume"
	SourcePortfolio     SkillSource = "portfolio"
	SourceQuestionnaire SkillSource = "questionnaire"
)

// SkillPriority ranks how badly a needed skill is wanted
type SkillPriority string

const (
	PriorityMustHave   SkillPriority = "must_have"
	PriorityNiceToHave SkillPriority = "nice_to_have"
)

// Identity holds the participant's personal details
type Identity struct {
	FullName        string   `json:"full_name" validate:"required,max=200"`
	Email           string   `json:"email" validate:"required,email"`
	ProfilePhotoURL string   `json:"profile_photo_url,omitempty"`
	University      string   `json:"university" validate:"required"`
	GraduationYear  int      `json:"graduation_year" validate:"required,gte=1900,lte=2100"`
	Major           []string `json:"major" validate:"required,min=1"`
	Minor           []string `json:"minor,omitempty"`
}

// Project is an optional descriptor of what the participant is building
type Project struct {
	OneLiner string       `json:"one_liner,omitempty"`
	Stage    ProjectStage `json:"stage,omitempty" validate:"omitempty,oneof=idea mvp launched scaling"`
	Industry []string     `json:"industry,omitempty"`
}

// PossessedSkill is a skill the participant offers
type PossessedSkill struct {
	Name   string      `json:"name" validate:"required,max=100"`
	Source SkillSource `json:"source" validate:"required,oneof=resume portfolio questionnaire"`
}

// NeededSkill is a skill the participant is looking for
type NeededSkill struct {
	Name     string        `json:"name" validate:"required,max=100"`
	Priority SkillPriority `json:"priority" validate:"required,oneof=must_have nice_to_have"`
}

// Skills splits the inventory into offered and sought
type Skills struct {
	Possessed []PossessedSkill `json:"possessed" validate:"dive"`
	Needed    []NeededSkill    `json:"needed" validate:"dive"`
}

// Profile is the full participant document
type Profile struct {
	UID         string           `json:"uid"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   *time.Time       `json:"updated_at,omitempty"`
	Identity    Identity         `json:"identity"`
	FocusAreas  []FocusArea      `json:"focus_areas"`
	Project     *Project         `json:"project,omitempty"`
	Skills      Skills           `json:"skills"`
	Embeddings  *EmbeddingBundle `json:"embeddings,omitempty"`
	DeviceToken string           `json:"device_token,omitempty"`
}

// NormalizeSkillName lower-cases and trims a skill name. Every place
// that tests skill-name equality must use this same normalization or
// literal-match highlighting silently drops true matches.
func NormalizeSkillName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// PossessedText joins the signal that feeds the possessed-side
// embedding: offered skill names plus the project one-liner and
// industry tags.
func (p *Profile) PossessedText() string {
	items := make([]string, 0, len(p.Skills.Possessed)+4)
	for _, s := range p.Skills.Possessed {
		items = append(items, s.Name)
	}
	if p.Project != nil {
		if p.Project.OneLiner != "" {
			items = append(items, p.Project.OneLiner)
		}
		items = append(items, p.Project.Industry...)
	}
	return strings.Join(items, ". ")
}

// NeededText joins the sought skill names for the needed-side embedding
func (p *Profile) NeededText() string {
	items := make([]string, 0, len(p.Skills.Needed))
	for _, s := range p.Skills.Needed {
		items = append(items, s.Name)
	}
	return strings.Join(items, ". ")
}

// PossessedNames returns the normalized names of offered skills
func (p *Profile) PossessedNames() []string {
	names := make([]string, 0, len(p.Skills.Possessed))
	for _, s := range p.Skills.Possessed {
		names = append(names, NormalizeSkillName(s.Name))
	}
	return names
}

// NeededNames returns the normalized names of sought skills
func (p *Profile) NeededNames() []string {
	names := make([]string, 0, len(p.Skills.Needed))
	for _, s := range p.Skills.Needed {
		names = append(names, NormalizeSkillName(s.Name))
	}
	return names
}

// IndustryTags returns the project's industry tags, or nil without a project
func (p *Profile) IndustryTags() []string {
	if p.Project == nil {
		return nil
	}
	return p.Project.Industry
}
