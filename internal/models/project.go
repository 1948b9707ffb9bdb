package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Project is a marketplace listing published by a company. Its step list is
// immutable once published; step identity is positional.
type Project struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	CompanyName string         `gorm:"size:160" json:"company_name"`
	StepsRaw    datatypes.JSON `gorm:"column:steps;type:json" json:"-"`
	TotalPoints int            `gorm:"not null;default:0" json:"total_points"`
	Published   bool           `gorm:"index;default:true" json:"published"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Steps       []ProjectStep  `gorm:"-" json:"steps"`
}

// ProjectStep is one unit of deliverable work within a project.
type ProjectStep struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Points      int    `json:"points"`
}

// BeforeSave serialises the step list and recomputes the point total.
func (p *Project) BeforeSave(tx *gorm.DB) error {
	total := 0
	for i := range p.Steps {
		if p.Steps[i].Points < 0 {
			p.Steps[i].Points = 0
		}
		total += p.Steps[i].Points
	}
	p.TotalPoints = total

	if len(p.Steps) == 0 {
		p.StepsRaw = datatypes.JSON("[]")
		return nil
	}
	raw, err := json.Marshal(p.Steps)
	if err != nil {
		return err
	}
	p.StepsRaw = datatypes.JSON(raw)
	return nil
}

// AfterFind hydrates the step list after loading from the database.
func (p *Project) AfterFind(tx *gorm.DB) error {
	p.Steps = []ProjectStep{}
	if len(p.StepsRaw) == 0 {
		return nil
	}
	return json.Unmarshal(p.StepsRaw, &p.Steps)
}

// HasSteps reports whether the project uses the step-based workflow. Projects
// without a step list run the single-shot path instead.
func (p Project) HasSteps() bool {
	return len(p.Steps) > 0
}

// StepCount returns the number of workflow steps, counting a single virtual
// step for single-shot projects.
func (p Project) StepCount() int {
	if len(p.Steps) == 0 {
		return 1
	}
	return len(p.Steps)
}

// FinalStepIndex returns the index of the step that carries mandatory grading.
func (p Project) FinalStepIndex() int {
	return p.StepCount() - 1
}
