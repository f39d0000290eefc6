package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-curriculum-api/internal/models"
	appErrors "github.com/noah-isme/sma-curriculum-api/pkg/errors"
	"github.com/noah-isme/sma-curriculum-api/pkg/jobs"
)

// fakeStore is an in-memory catalog shared by the fake repositories below.
// Setting failWith makes every repository call return that error.
type fakeStore struct {
	seq       int
	clock     time.Time
	subjects  map[string]models.Subject
	courses   map[string]models.Course
	teachers  map[string]models.CourseTeacher
	staff     map[string]models.StaffRef
	topics    map[string]models.Topic
	lessons   map[string]models.Lesson
	years     map[string]models.AcademicYear
	materials map[string]models.Material
	users     map[string]string
	failWith  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		clock:     time.Date(2025, 7, 14, 8, 0, 0, 0, time.UTC),
		subjects:  map[string]models.Subject{},
		courses:   map[string]models.Course{},
		teachers:  map[string]models.CourseTeacher{},
		staff:     map[string]models.StaffRef{},
		topics:    map[string]models.Topic{},
		lessons:   map[string]models.Lesson{},
		years:     map[string]models.AcademicYear{},
		materials: map[string]models.Material{},
		users:     map[string]string{},
	}
}

func (s *fakeStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%03d", prefix, s.seq)
}

func (s *fakeStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

type fakeSubjects struct{ *fakeStore }

func (f fakeSubjects) List(ctx context.Context) ([]models.Subject, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := []models.Subject{}
	for _, s := range f.subjects {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GradeLevel != out[j].GradeLevel {
			return out[i].GradeLevel < out[j].GradeLevel
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f fakeSubjects) ListByIDs(ctx context.Context, ids []string) ([]models.Subject, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := []models.Subject{}
	for _, id := range ids {
		if s, ok := f.subjects[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f fakeSubjects) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	s, ok := f.subjects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (f fakeSubjects) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	for id, s := range f.subjects {
		if id != excludeID && strings.EqualFold(s.Code, code) {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeSubjects) Create(ctx context.Context, subject *models.Subject) error {
	if f.failWith != nil {
		return f.failWith
	}
	subject.ID = f.nextID("subject")
	subject.CreatedAt = f.tick()
	subject.UpdatedAt = subject.CreatedAt
	f.subjects[subject.ID] = *subject
	return nil
}

func (f fakeSubjects) Update(ctx context.Context, subject *models.Subject) error {
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.subjects[subject.ID]; !ok {
		return sql.ErrNoRows
	}
	subject.UpdatedAt = f.tick()
	f.subjects[subject.ID] = *subject
	return nil
}

func (f fakeSubjects) Delete(ctx context.Context, id string) error {
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.subjects[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.subjects, id)
	return nil
}

type fakeCourses struct{ *fakeStore }

func (f fakeCourses) List(ctx context.Context, filter models.CourseSearchFilter) ([]models.Course, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	q := strings.ToLower(filter.Query)
	out := []models.Course{}
	for _, c := range f.courses {
		if q != "" {
			desc := ""
			if c.Description != nil {
				desc = *c.Description
			}
			if !strings.Contains(strings.ToLower(c.Name), q) && !strings.Contains(strings.ToLower(c.Code), q) && !strings.Contains(strings.ToLower(desc), q) {
				continue
			}
		}
		if filter.GradeLevel != nil && c.GradeLevel != *filter.GradeLevel {
			continue
		}
		if filter.Department != nil {
			subject, ok := f.subjects[c.SubjectID]
			if !ok || subject.Department != *filter.Department {
				continue
			}
		}
		if filter.IsMandatory != nil && c.IsMandatory != *filter.IsMandatory {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GradeLevel != out[j].GradeLevel {
			return out[i].GradeLevel < out[j].GradeLevel
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f fakeCourses) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	c, ok := f.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (f fakeCourses) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	for id, c := range f.courses {
		if id != excludeID && strings.EqualFold(c.Code, code) {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeCourses) Create(ctx context.Context, course *models.Course) error {
	if f.failWith != nil {
		return f.failWith
	}
	course.ID = f.nextID("course")
	course.CreatedAt = f.tick()
	course.UpdatedAt = course.CreatedAt
	f.courses[course.ID] = *course
	return nil
}

func (f fakeCourses) Update(ctx context.Context, course *models.Course) error {
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.courses[course.ID]; !ok {
		return sql.ErrNoRows
	}
	course.UpdatedAt = f.tick()
	f.courses[course.ID] = *course
	return nil
}

func (f fakeCourses) Delete(ctx context.Context, id string) error {
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.courses[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.courses, id)
	return nil
}

func (f fakeCourses) Facets(ctx context.Context) (*models.CourseFacets, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	departments := map[string]struct{}{}
	grades := map[int]struct{}{}
	for _, c := range f.courses {
		grades[c.GradeLevel] = struct{}{}
		if s, ok := f.subjects[c.SubjectID]; ok && s.Department != "" {
			departments[s.Department] = struct{}{}
		}
	}
	facets := &models.CourseFacets{Departments: []string{}, GradeLevels: []int{}}
	for d := range departments {
		facets.Departments = append(facets.Departments, d)
	}
	for g := range grades {
		facets.GradeLevels = append(facets.GradeLevels, g)
	}
	sort.Strings(facets.Departments)
	sort.Ints(facets.GradeLevels)
	return facets, nil
}

type fakeTeachers struct{ *fakeStore }

func (f fakeTeachers) detail(ct models.CourseTeacher) models.CourseTeacherDetail {
	staff, ok := f.staff[ct.StaffID]
	if !ok {
		staff = models.StaffRef{ID: ct.StaffID}
	}
	return models.CourseTeacherDetail{CourseTeacher: ct, Staff: staff}
}

func (f fakeTeachers) ListByCourseIDs(ctx context.Context, courseIDs []string) ([]models.CourseTeacherDetail, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	wanted := map[string]bool{}
	for _, id := range courseIDs {
		wanted[id] = true
	}
	out := []models.CourseTeacherDetail{}
	for _, ct := range f.teachers {
		if wanted[ct.CourseID] {
			out = append(out, f.detail(ct))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AssignedAt.Equal(out[j].AssignedAt) {
			return out[i].AssignedAt.Before(out[j].AssignedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f fakeTeachers) FindDetailByID(ctx context.Context, id string) (*models.CourseTeacherDetail, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	ct, ok := f.teachers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	detail := f.detail(ct)
	return &detail, nil
}

func (f fakeTeachers) Create(ctx context.Context, assignment *models.CourseTeacher) error {
	if f.failWith != nil {
		return f.failWith
	}
	assignment.ID = f.nextID("assignment")
	assignment.AssignedAt = f.tick()
	f.teachers[assignment.ID] = *assignment
	return nil
}

func (f fakeTeachers) UpdateRole(ctx context.Context, id string, role models.TeacherRole) error {
	if f.failWith != nil {
		return f.failWith
	}
	ct, ok := f.teachers[id]
	if !ok {
		return sql.ErrNoRows
	}
	ct.Role = role
	f.teachers[id] = ct
	return nil
}

func (f fakeTeachers) Delete(ctx context.Context, id string) error {
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.teachers[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.teachers, id)
	return nil
}

type fakeStaff struct{ *fakeStore }

func (f fakeStaff) FindRefByID(ctx context.Context, id string) (*models.StaffRef, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	s, ok := f.staff[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

type fakeTopics struct{ *fakeStore }

func (f fakeTopics) ListByCourse(ctx context.Context, courseID string) ([]models.Topic, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := []models.Topic{}
	for _, t := range f.topics {
		if t.CourseID == courseID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f fakeTopics) FindByID(ctx context.Context, id string) (*models.Topic, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	t, ok := f.topics[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &t, nil
}

func (f fakeTopics) Create(ctx context.Context, topic *models.Topic) error {
	if f.failWith != nil {
		return f.failWith
	}
	topic.ID = f.nextID("topic")
	topic.CreatedAt = f.tick()
	topic.UpdatedAt = topic.CreatedAt
	f.topics[topic.ID] = *topic
	return nil
}

func (f fakeTopics) Update(ctx context.Context, topic *models.Topic) error {
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.topics[topic.ID]; !ok {
		return sql.ErrNoRows
	}
	topic.UpdatedAt = f.tick()
	f.topics[topic.ID] = *topic
	return nil
}

func (f fakeTopics) Delete(ctx context.Context, id string) error {
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.topics[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.topics, id)
	return nil
}

type fakeLessons struct{ *fakeStore }

func (f fakeLessons) sorted(match func(models.Lesson) bool) []models.Lesson {
	out := []models.Lesson{}
	for _, l := range f.lessons {
		if match(l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (f fakeLessons) ListByTopic(ctx context.Context, topicID string) ([]models.Lesson, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.sorted(func(l models.Lesson) bool { return l.TopicID == topicID }), nil
}

func (f fakeLessons) ListByTopicIDs(ctx context.Context, topicIDs []string) ([]models.Lesson, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	wanted := map[string]bool{}
	for _, id := range topicIDs {
		wanted[id] = true
	}
	return f.sorted(func(l models.Lesson) bool { return wanted[l.TopicID] }), nil
}

func (f fakeLessons) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	l, ok := f.lessons[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &l, nil
}

func (f fakeLessons) Create(ctx context.Context, lesson *models.Lesson) error {
	if f.failWith != nil {
		return f.failWith
	}
	lesson.ID = f.nextID("lesson")
	lesson.CreatedAt = f.tick()
	lesson.UpdatedAt = lesson.CreatedAt
	f.lessons[lesson.ID] = *lesson
	return nil
}

func (f fakeLessons) Update(ctx context.Context, lesson *models.Lesson) error {
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.lessons[lesson.ID]; !ok {
		return sql.ErrNoRows
	}
	lesson.UpdatedAt = f.tick()
	f.lessons[lesson.ID] = *lesson
	return nil
}

func (f fakeLessons) Delete(ctx context.Context, id string) error {
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.lessons[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.lessons, id)
	return nil
}

type fakeYears struct{ *fakeStore }

func (f fakeYears) List(ctx context.Context) ([]models.AcademicYear, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := []models.AcademicYear{}
	for _, y := range f.years {
		out = append(out, y)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func (f fakeYears) ListByIDs(ctx context.Context, ids []string) ([]models.AcademicYear, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := []models.AcademicYear{}
	for _, id := range ids {
		if y, ok := f.years[id]; ok {
			out = append(out, y)
		}
	}
	return out, nil
}

func (f fakeYears) FindByID(ctx context.Context, id string) (*models.AcademicYear, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	y, ok := f.years[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &y, nil
}

type fakeMaterials struct{ *fakeStore }

func (f fakeMaterials) detail(m models.Material) models.MaterialDetail {
	detail := models.MaterialDetail{Material: m}
	if name, ok := f.users[m.UploadedBy]; ok {
		detail.UploaderName = &name
	}
	return detail
}

func (f fakeMaterials) ListByCourse(ctx context.Context, courseID string) ([]models.MaterialDetail, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := []models.MaterialDetail{}
	for _, m := range f.materials {
		if m.CourseID == courseID {
			out = append(out, f.detail(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (f fakeMaterials) FindByID(ctx context.Context, id string) (*models.MaterialDetail, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	m, ok := f.materials[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	detail := f.detail(m)
	return &detail, nil
}

func (f fakeMaterials) Create(ctx context.Context, material *models.Material) error {
	if f.failWith != nil {
		return f.failWith
	}
	if material.ID == "" {
		material.ID = f.nextID("material")
	}
	material.CreatedAt = f.tick()
	f.materials[material.ID] = *material
	return nil
}

func (f fakeMaterials) Delete(ctx context.Context, id string) error {
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.materials[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.materials, id)
	return nil
}

// memoryCache is a CacheRepository backed by a map of JSON payloads.
type memoryCache struct {
	entries map[string][]byte
	gets    int
	deletes int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.gets++
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deletes++
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

type recordingQueue struct {
	jobs []jobs.Job
	err  error
}

func (q *recordingQueue) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

// catalogFixture wires every catalog service over one fakeStore.
type catalogFixture struct {
	store     *fakeStore
	cache     *memoryCache
	subjects  *SubjectService
	courses   *CourseService
	topics    *TopicService
	lessons   *LessonService
	materials *MaterialService
	years     *AcademicYearService
	queue     *recordingQueue
}

func newCatalogFixture(t *testing.T, cacheEnabled bool) *catalogFixture {
	t.Helper()
	store := newFakeStore()
	memCache := newMemoryCache()
	cache := NewCacheService(memCache, nil, time.Minute, zap.NewNop(), cacheEnabled)
	validate := validator.New()
	queue := &recordingQueue{}

	f := &catalogFixture{store: store, cache: memCache, queue: queue}
	f.subjects = NewSubjectService(fakeSubjects{store}, cache, nil, validate, zap.NewNop())
	f.courses = NewCourseService(CourseServiceParams{
		Courses:       fakeCourses{store},
		Subjects:      fakeSubjects{store},
		AcademicYears: fakeYears{store},
		Teachers:      fakeTeachers{store},
		Staff:         fakeStaff{store},
		Topics:        fakeTopics{store},
		Lessons:       fakeLessons{store},
		Cache:         cache,
		Validator:     validate,
	})
	f.topics = NewTopicService(fakeTopics{store}, fakeCourses{store}, fakeLessons{store}, cache, nil, validate, nil)
	f.lessons = NewLessonService(fakeLessons{store}, fakeTopics{store}, cache, nil, validate, nil)
	f.materials = NewMaterialService(MaterialServiceParams{
		Materials: fakeMaterials{store},
		Courses:   fakeCourses{store},
		Topics:    fakeTopics{store},
		Lessons:   fakeLessons{store},
		Cleanup:   queue,
		Cache:     cache,
		Validator: validate,
		Config:    MaterialServiceConfig{APIPrefix: "/api/v1"},
	})
	f.years = NewAcademicYearService(fakeYears{store}, cache, nil)
	return f
}

func (f *catalogFixture) mustSubject(t *testing.T, name, code string, grade int, department string) *models.Subject {
	t.Helper()
	subject, err := f.subjects.Create(context.Background(), CreateSubjectRequest{Name: name, Code: code, GradeLevel: grade, Department: department})
	require.NoError(t, err)
	return subject
}

func (f *catalogFixture) mustCourse(t *testing.T, subjectID, name, code string, grade int, mandatory bool) *models.Course {
	t.Helper()
	course, err := f.courses.Create(context.Background(), CreateCourseRequest{
		SubjectID: subjectID, Name: name, Code: code, GradeLevel: grade, Credits: 2, DurationWeeks: 12, IsMandatory: mandatory,
	})
	require.NoError(t, err)
	return course
}

func (f *catalogFixture) mustTopic(t *testing.T, courseID, name string, order, hours int) *models.Topic {
	t.Helper()
	topic, err := f.topics.Create(context.Background(), CreateTopicRequest{CourseID: courseID, Name: name, OrderIndex: order, DurationHours: hours})
	require.NoError(t, err)
	return topic
}

func (f *catalogFixture) mustLesson(t *testing.T, topicID, name string, order int) *models.Lesson {
	t.Helper()
	lesson, err := f.lessons.Create(context.Background(), CreateLessonRequest{TopicID: topicID, Name: name, OrderIndex: order, DurationMinutes: 45})
	require.NoError(t, err)
	return lesson
}

func assertErrorCode(t *testing.T, want *appErrors.Error, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want.Code, appErrors.FromError(err).Code, err.Error())
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }
