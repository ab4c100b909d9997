package application

// Wire payloads for the admin dispatch endpoint. Optional fields are
// pointers: absent means "leave untouched", which is not the same as a
// supplied zero value.

type createUserData struct {
	Email        string  `json:"email"`
	Password     string  `json:"password"`
	FullName     string  `json:"fullName"`
	Role         string  `json:"role"`
	OrgID        string  `json:"orgId"`
	DepartmentID *string `json:"departmentId"`
}

type updateUserData struct {
	UID          string  `json:"uid"`
	Email        *string `json:"email"`
	FullName     *string `json:"fullName"`
	Password     *string `json:"password"`
	Role         *string `json:"role"`
	OrgID        *string `json:"orgId"`
	DepartmentID *string `json:"departmentId"`
}

type deleteUserData struct {
	UID     string `json:"uid"`
	Cascade bool   `json:"cascade"`
}

type resetPasswordData struct {
	UID         string `json:"uid"`
	Password    string `json:"password"`
	NewPassword string `json:"newPassword"`
}

// password returns whichever alias the client used.
func (d resetPasswordData) password() string {
	if d.Password != "" {
		return d.Password
	}
	return d.NewPassword
}
