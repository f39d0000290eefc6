package models

import "time"

// TeacherRole is the capacity in which a staff member teaches a course.
type TeacherRole string

const (
	TeacherRolePrimary    TeacherRole = "primary"
	TeacherRoleAssistant  TeacherRole = "assistant"
	TeacherRoleSubstitute TeacherRole = "substitute"
)

// Valid reports whether r is a known role.
func (r TeacherRole) Valid() bool {
	switch r {
	case TeacherRolePrimary, TeacherRoleAssistant, TeacherRoleSubstitute:
		return true
	}
	return false
}

// CourseTeacher links a staff member to a course.
type CourseTeacher struct {
	ID         string      `db:"id" json:"id"`
	CourseID   string      `db:"course_id" json:"course_id"`
	StaffID    string      `db:"staff_id" json:"staff_id"`
	Role       TeacherRole `db:"role" json:"role"`
	AssignedAt time.Time   `db:"assigned_at" json:"assigned_at"`
}

// StaffRef is the subset of a staff record embedded in teacher assignments.
type StaffRef struct {
	ID         string `db:"id" json:"id"`
	FirstName  string `db:"first_name" json:"first_name"`
	LastName   string `db:"last_name" json:"last_name"`
	EmployeeID string `db:"employee_id" json:"employee_id"`
}

// FullName joins first and last name.
func (s StaffRef) FullName() string {
	switch {
	case s.FirstName == "":
		return s.LastName
	case s.LastName == "":
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// CourseTeacherDetail is an assignment with the staff member embedded.
type CourseTeacherDetail struct {
	CourseTeacher
	Staff StaffRef `db:"staff" json:"staff"`
}
