package dto

// CreateRoomRequest payload.
type CreateRoomRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Capacity int    `json:"capacity" validate:"omitempty,min=0"`
}

// CreateCourseRequest payload.
type CreateCourseRequest struct {
	Name string `json:"name" validate:"required,max=150"`
}

// CreateTeacherRequest payload.
type CreateTeacherRequest struct {
	Name    string `json:"name" validate:"required,max=150"`
	Subject string `json:"subject" validate:"max=150"`
}

// CreateClassRequest payload.
type CreateClassRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// CreateAssignmentRequest binds a course and teacher to a class.
type CreateAssignmentRequest struct {
	CourseID  string `json:"courseId" validate:"required"`
	TeacherID string `json:"teacherId" validate:"required"`
}
