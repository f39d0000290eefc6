package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-curriculum-api/internal/models"
	appErrors "github.com/noah-isme/sma-curriculum-api/pkg/errors"
	"github.com/noah-isme/sma-curriculum-api/pkg/export"
)

// Supported outline formats.
const (
	ExportFormatCSV  = "csv"
	ExportFormatPDF  = "pdf"
	ExportFormatXLSX = "xlsx"
)

var outlineContentTypes = map[string]string{
	ExportFormatCSV:  "text/csv",
	ExportFormatPDF:  "application/pdf",
	ExportFormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

type courseDetailReader interface {
	Get(ctx context.Context, id string) (*models.CourseDetail, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportedFile is a rendered document ready to be sent as an attachment.
type ExportedFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders course outlines.
type ExportService struct {
	courses courseDetailReader
	csv     datasetRenderer
	pdf     datasetRenderer
	xlsx    datasetRenderer
	enabled bool
	logger  *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to the
// pkg/export implementations; workbooks always use the XLSX exporter.
func NewExportService(courses courseDetailReader, csv, pdf datasetRenderer, enabled bool, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{courses: courses, csv: csv, pdf: pdf, xlsx: export.NewXLSXExporter(), enabled: enabled, logger: logger}
}

// CourseOutline renders the course's topics and lessons in the requested format.
func (s *ExportService) CourseOutline(ctx context.Context, courseID, format string) (*ExportedFile, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrDisabled, "course exports are disabled")
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	contentType, ok := outlineContentTypes[format]
	if !ok {
		return nil, appErrors.Validation(fmt.Sprintf("unsupported export format %q", format))
	}

	detail, err := s.courses.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}

	dataset := outlineDataset(detail)
	file := &ExportedFile{Filename: outlineFilename(detail.Code, format), ContentType: contentType}
	switch format {
	case ExportFormatPDF:
		file.Body, err = s.pdf.Render(dataset)
	case ExportFormatXLSX:
		file.Body, err = s.xlsx.Render(dataset)
	default:
		file.Body, err = s.csv.Render(dataset)
	}
	if err != nil {
		s.logger.Error("render course outline", zap.String("course_id", courseID), zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render course outline")
	}
	return file, nil
}

var outlineHeaders = []string{"Topic #", "Topic", "Topic Hours", "Lesson #", "Lesson", "Minutes", "Learning Outcomes"}

func outlineDataset(detail *models.CourseDetail) export.Dataset {
	summary := []string{
		fmt.Sprintf("Grade %d, %d credits, %d weeks", detail.GradeLevel, detail.Credits, detail.DurationWeeks),
	}
	if detail.Subject != nil {
		summary = append(summary, fmt.Sprintf("Subject: %s (%s), %s", detail.Subject.Name, detail.Subject.Code, detail.Subject.Department))
	}
	if len(detail.Teachers) > 0 {
		names := make([]string, 0, len(detail.Teachers))
		for _, teacher := range detail.Teachers {
			names = append(names, fmt.Sprintf("%s (%s)", teacher.Staff.FullName(), teacher.Role))
		}
		summary = append(summary, "Teachers: "+strings.Join(names, ", "))
	}
	summary = append(summary, fmt.Sprintf("%d topics, %d lessons, %d hours",
		detail.Summary.TopicCount, detail.Summary.LessonCount, detail.Summary.TotalHours))

	rows := make([][]string, 0, detail.Summary.LessonCount+len(detail.Topics))
	for _, topic := range detail.Topics {
		topicCells := []string{strconv.Itoa(topic.OrderIndex), topic.Name, strconv.Itoa(topic.DurationHours)}
		if len(topic.Lessons) == 0 {
			rows = append(rows, append(topicCells, "", "", "", ""))
			continue
		}
		for _, lesson := range topic.Lessons {
			row := append(append([]string{}, topicCells...),
				strconv.Itoa(lesson.OrderIndex), lesson.Name, strconv.Itoa(lesson.DurationMinutes), strings.Join(lesson.LearningOutcomes, "; "))
			rows = append(rows, row)
		}
	}

	return export.Dataset{
		Title:   fmt.Sprintf("%s %s", detail.Code, detail.Name),
		Summary: summary,
		Headers: outlineHeaders,
		Rows:    rows,
	}
}

func outlineFilename(code, format string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return '-'
	}, code)
	if slug == "" {
		slug = "course"
	}
	return slug + "-outline." + format
}
