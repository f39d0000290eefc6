package seed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog is a curriculum document: subjects with their courses, topics and
// lessons nested in teaching order.
type Catalog struct {
	Subjects []Subject `yaml:"subjects"`
}

type Subject struct {
	Name        string   `yaml:"name"`
	Code        string   `yaml:"code"`
	Description string   `yaml:"description"`
	GradeLevel  int      `yaml:"grade_level"`
	Department  string   `yaml:"department"`
	Courses     []Course `yaml:"courses"`
}

// Course inherits its subject's grade level when GradeLevel is zero.
type Course struct {
	Name               string   `yaml:"name"`
	Code               string   `yaml:"code"`
	Description        string   `yaml:"description"`
	GradeLevel         int      `yaml:"grade_level"`
	Credits            int      `yaml:"credits"`
	DurationWeeks      int      `yaml:"duration_weeks"`
	Mandatory          bool     `yaml:"mandatory"`
	Prerequisites      []string `yaml:"prerequisites"`
	LearningObjectives []string `yaml:"learning_objectives"`
	SyllabusURL        string   `yaml:"syllabus_url"`
	Topics             []Topic  `yaml:"topics"`
}

type Topic struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Hours       int      `yaml:"hours"`
	Lessons     []Lesson `yaml:"lessons"`
}

type Lesson struct {
	Name             string   `yaml:"name"`
	Description      string   `yaml:"description"`
	Content          string   `yaml:"content"`
	Minutes          int      `yaml:"minutes"`
	LearningOutcomes []string `yaml:"learning_outcomes"`
	MaterialsNeeded  []string `yaml:"materials_needed"`
}

// Parse decodes a single curriculum document. Unknown keys are rejected.
func Parse(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var catalog Catalog
	if err := dec.Decode(&catalog); err != nil {
		if errors.Is(err, io.EOF) {
			return &catalog, nil
		}
		return nil, err
	}
	return &catalog, nil
}

// LoadDir parses every .yaml/.yml file under dir in lexical path order and
// concatenates their subjects.
func LoadDir(dir string) (*Catalog, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk curriculum dir: %w", err)
	}
	sort.Strings(paths)

	merged := &Catalog{}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		catalog, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		merged.Subjects = append(merged.Subjects, catalog.Subjects...)
	}
	return merged, nil
}

// Counts reports how many records the catalog describes.
func (c *Catalog) Counts() (subjects, courses, topics, lessons int) {
	for _, subject := range c.Subjects {
		subjects++
		for _, course := range subject.Courses {
			courses++
			for _, topic := range course.Topics {
				topics++
				lessons += len(topic.Lessons)
			}
		}
	}
	return subjects, courses, topics, lessons
}
