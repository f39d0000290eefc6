package seed

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-curriculum-api/internal/models"
	"github.com/noah-isme/sma-curriculum-api/internal/service"
	appErrors "github.com/noah-isme/sma-curriculum-api/pkg/errors"
)

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("subjects:\n  - name: Art\n    colour: red\n"))
	require.Error(t, err)

	catalog, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, catalog.Subjects)
}

func TestLoadDirSample(t *testing.T) {
	catalog, err := LoadDir(filepath.Join("..", "..", "curriculum"))
	require.NoError(t, err)

	subjects, courses, topics, lessons := catalog.Counts()
	assert.Equal(t, 1, subjects)
	assert.Equal(t, 2, courses)
	assert.Equal(t, 3, topics)
	assert.Equal(t, 4, lessons)
	assert.Equal(t, "ALG1", catalog.Subjects[0].Courses[0].Code)
}

func TestLoadDirMergesInPathOrder(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("b.yml", "subjects:\n  - name: Science\n    code: SCI\n")
	write("a.yaml", "subjects:\n  - name: Art\n    code: ART\n")
	write("notes.md", "# not a curriculum file")

	catalog, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, catalog.Subjects, 2)
	assert.Equal(t, "ART", catalog.Subjects[0].Code)
	assert.Equal(t, "SCI", catalog.Subjects[1].Code)

	write("c.yaml", "subjects: [")
	_, err = LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "c.yaml")
}

type fakeCatalog struct {
	subjects []models.Subject
	courses  []models.CourseView
	topics   []service.CreateTopicRequest
	lessons  []service.CreateLessonRequest
	failOn   string
	seq      int
}

func (f *fakeCatalog) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

type fakeSubjects struct{ *fakeCatalog }

func (f fakeSubjects) List(context.Context) ([]models.Subject, bool, error) {
	return f.subjects, false, nil
}

func (f fakeSubjects) Create(_ context.Context, req service.CreateSubjectRequest) (*models.Subject, error) {
	subject := models.Subject{ID: f.nextID("subject"), Name: req.Name, Code: req.Code, GradeLevel: req.GradeLevel}
	f.subjects = append(f.subjects, subject)
	return &subject, nil
}

type fakeCourses struct{ *fakeCatalog }

func (f fakeCourses) List(context.Context) ([]models.CourseView, bool, error) {
	return f.courses, false, nil
}

func (f fakeCourses) Create(_ context.Context, req service.CreateCourseRequest) (*models.Course, error) {
	if req.Code == f.failOn {
		return nil, appErrors.Validation("credits must be at least 1")
	}
	course := models.Course{ID: f.nextID("course"), SubjectID: req.SubjectID, Code: req.Code, GradeLevel: req.GradeLevel}
	f.courses = append(f.courses, models.CourseView{Course: course})
	return &course, nil
}

type fakeTopics struct{ *fakeCatalog }

func (f fakeTopics) Create(_ context.Context, req service.CreateTopicRequest) (*models.Topic, error) {
	f.topics = append(f.topics, req)
	return &models.Topic{ID: f.nextID("topic"), CourseID: req.CourseID, Name: req.Name}, nil
}

type fakeLessons struct{ *fakeCatalog }

func (f fakeLessons) Create(_ context.Context, req service.CreateLessonRequest) (*models.Lesson, error) {
	if req.Name == f.failOn {
		return nil, appErrors.Backend(sql.ErrConnDone, "failed to create lesson")
	}
	f.lessons = append(f.lessons, req)
	return &models.Lesson{ID: f.nextID("lesson"), TopicID: req.TopicID, Name: req.Name}, nil
}

func newTestImporter(store *fakeCatalog) *Importer {
	return NewImporter(fakeSubjects{store}, fakeCourses{store}, fakeTopics{store}, fakeLessons{store}, nil)
}

func sampleCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := LoadDir(filepath.Join("..", "..", "curriculum"))
	require.NoError(t, err)
	return catalog
}

func TestImportCreatesHierarchyInOrder(t *testing.T) {
	store := &fakeCatalog{}
	result, err := newTestImporter(store).Import(context.Background(), sampleCatalog(t))
	require.NoError(t, err)

	assert.Equal(t, &Result{SubjectsCreated: 1, CoursesCreated: 2, TopicsCreated: 3, LessonsCreated: 4}, result)
	require.Len(t, store.courses, 2)
	assert.Equal(t, 7, store.courses[0].GradeLevel, "grade level inherited from subject")

	require.Len(t, store.topics, 3)
	assert.Equal(t, 1, store.topics[0].OrderIndex)
	assert.Equal(t, 2, store.topics[1].OrderIndex)
	assert.Equal(t, 6, store.topics[0].DurationHours)

	require.Len(t, store.lessons, 4)
	assert.Equal(t, []int{1, 2, 1, 2}, []int{
		store.lessons[0].OrderIndex, store.lessons[1].OrderIndex, store.lessons[2].OrderIndex, store.lessons[3].OrderIndex,
	})
	assert.Equal(t, []string{"Worksheet 1.2"}, store.lessons[1].MaterialsNeeded)
	assert.Nil(t, store.lessons[0].Description)
}

func TestImportIsRepeatable(t *testing.T) {
	store := &fakeCatalog{}
	importer := newTestImporter(store)
	_, err := importer.Import(context.Background(), sampleCatalog(t))
	require.NoError(t, err)

	result, err := importer.Import(context.Background(), sampleCatalog(t))
	require.NoError(t, err)
	assert.Equal(t, &Result{SubjectsReused: 1, CoursesSkipped: 2}, result)
	assert.Len(t, store.topics, 3)
}

func TestImportStopsAtFirstFailure(t *testing.T) {
	store := &fakeCatalog{failOn: "Evaluating expressions"}
	result, err := newTestImporter(store).Import(context.Background(), sampleCatalog(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Contains(t, err.Error(), `course ALG1 lesson "Evaluating expressions"`)
	assert.Equal(t, 1, result.LessonsCreated)

	store = &fakeCatalog{failOn: "GEO1"}
	_, err = newTestImporter(store).Import(context.Background(), sampleCatalog(t))
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
