package account

import "github.com/fundwit/go-commons/types"

type Role struct {
	ID    string `json:"id" gorm:"primary_key"`
	Title string `json:"title"`
}

type Permission struct {
	ID    string `json:"id" gorm:"primary_key"`
	Title string `json:"title"`
}

type RolePermissionBinding struct {
	ID           types.ID `json:"id" gorm:"primary_key"`
	RoleID       string   `json:"roleId"`
	PermissionID string   `json:"permissionId"`
}

type UserRoleBinding struct {
	ID     types.ID `json:"id" gorm:"primary_key"`
	UserID types.ID `json:"userId"`
	RoleID string   `json:"roleId"`
}
