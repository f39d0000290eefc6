package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-curriculum-api/pkg/errors"
)

func TestLessonServiceListByTopic(t *testing.T) {
	f := newCatalogFixture(t, false)
	subject := f.mustSubject(t, "Mathematics", "MATH", 7, "Academic")
	course := f.mustCourse(t, subject.ID, "Algebra I", "ALG1", 7, true)
	topic := f.mustTopic(t, course.ID, "Variables", 1, 4)
	f.mustLesson(t, topic.ID, "Evaluating expressions", 2)
	f.mustLesson(t, topic.ID, "What is a variable", 1)

	lessons, err := f.lessons.ListByTopic(context.Background(), topic.ID)
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	assert.Equal(t, "What is a variable", lessons[0].Name)
	assert.NotNil(t, lessons[0].LearningOutcomes)
	assert.NotNil(t, lessons[0].MaterialsNeeded)

	_, err = f.lessons.ListByTopic(context.Background(), "missing")
	assertErrorCode(t, appErrors.ErrNotFound, err)
}

func TestLessonServiceCreate(t *testing.T) {
	f := newCatalogFixture(t, false)
	subject := f.mustSubject(t, "Mathematics", "MATH", 7, "Academic")
	course := f.mustCourse(t, subject.ID, "Algebra I", "ALG1", 7, true)
	topic := f.mustTopic(t, course.ID, "Variables", 1, 4)

	lesson, err := f.lessons.Create(context.Background(), CreateLessonRequest{
		TopicID:          topic.ID,
		Name:             " What is a variable ",
		DurationMinutes:  40,
		LearningOutcomes: []string{"Define a variable", "", " Read expressions "},
	})
	require.NoError(t, err)
	assert.Equal(t, "What is a variable", lesson.Name)
	assert.Equal(t, []string{"Define a variable", "", " Read expressions "}, []string(lesson.LearningOutcomes))
	assert.NotNil(t, lesson.MaterialsNeeded)
	assert.True(t, lesson.IsActive)

	cases := map[string]CreateLessonRequest{
		"unknown topic":     {TopicID: "missing", Name: "Intro"},
		"missing name":      {TopicID: topic.ID},
		"negative order":    {TopicID: topic.ID, Name: "Intro", OrderIndex: -1},
		"negative duration": {TopicID: topic.ID, Name: "Intro", DurationMinutes: -5},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.lessons.Create(context.Background(), req)
			assertErrorCode(t, appErrors.ErrValidation, err)
		})
	}
	assert.Len(t, f.store.lessons, 1)
}

func TestLessonServiceUpdate(t *testing.T) {
	f := newCatalogFixture(t, false)
	ctx := context.Background()
	subject := f.mustSubject(t, "Mathematics", "MATH", 7, "Academic")
	course := f.mustCourse(t, subject.ID, "Algebra I", "ALG1", 7, true)
	topic := f.mustTopic(t, course.ID, "Variables", 1, 4)
	next := f.mustTopic(t, course.ID, "Equations", 2, 4)
	lesson := f.mustLesson(t, topic.ID, "What is a variable", 1)
	before := f.store.lessons[lesson.ID]

	same, err := f.lessons.Update(ctx, lesson.ID, UpdateLessonRequest{})
	require.NoError(t, err)
	assert.Equal(t, before, *same)

	_, err = f.lessons.Update(ctx, lesson.ID, UpdateLessonRequest{DurationMinutes: intPtr(-1)})
	assertErrorCode(t, appErrors.ErrValidation, err)
	_, err = f.lessons.Update(ctx, lesson.ID, UpdateLessonRequest{TopicID: strPtr("missing")})
	assertErrorCode(t, appErrors.ErrValidation, err)
	assert.Equal(t, before, f.store.lessons[lesson.ID])

	updated, err := f.lessons.Update(ctx, lesson.ID, UpdateLessonRequest{
		TopicID:         strPtr(next.ID),
		MaterialsNeeded: &[]string{"Whiteboard"},
	})
	require.NoError(t, err)
	assert.Equal(t, next.ID, updated.TopicID)
	assert.Equal(t, []string{"Whiteboard"}, []string(updated.MaterialsNeeded))
	assert.Equal(t, 45, updated.DurationMinutes)

	_, err = f.lessons.Update(ctx, "missing", UpdateLessonRequest{Name: strPtr("x")})
	assertErrorCode(t, appErrors.ErrNotFound, err)
}

func TestLessonServiceDelete(t *testing.T) {
	f := newCatalogFixture(t, false)
	subject := f.mustSubject(t, "Mathematics", "MATH", 7, "Academic")
	course := f.mustCourse(t, subject.ID, "Algebra I", "ALG1", 7, true)
	topic := f.mustTopic(t, course.ID, "Variables", 1, 4)
	lesson := f.mustLesson(t, topic.ID, "What is a variable", 1)

	require.NoError(t, f.lessons.Delete(context.Background(), lesson.ID))
	assertErrorCode(t, appErrors.ErrNotFound, f.lessons.Delete(context.Background(), lesson.ID))
}
