package domain

type Group string

const (
	GroupUser      Group = "USER"
	GroupModerator Group = "MODERATOR"
	GroupAdmin     Group = "ADMIN"
)

type Permission string

const (
	PermissionRead         Permission = "read"
	PermissionWrite        Permission = "write"
	PermissionDelete       Permission = "delete"
	PermissionManageUsers  Permission = "manage_users"
	PermissionManageOrders Permission = "manage_orders"
	PermissionComment      Permission = "comment"
	PermissionFavorite     Permission = "favorite"
	PermissionLike         Permission = "like"
	PermissionCart         Permission = "cart"
)

var groupPermissions = map[Group][]Permission{
	GroupAdmin: {
		PermissionRead,
		PermissionWrite,
		PermissionDelete,
		PermissionManageUsers,
		PermissionManageOrders,
		PermissionComment,
		PermissionFavorite,
		PermissionLike,
	},
	GroupUser: {
		PermissionRead,
		PermissionComment,
		PermissionFavorite,
		PermissionLike,
		PermissionCart,
	},
	GroupModerator: {
		PermissionRead,
		PermissionWrite,
		PermissionComment,
		PermissionFavorite,
		PermissionLike,
		PermissionCart,
	},
}

func (g Group) HasPermission(p Permission) bool {
	for _, perm := range groupPermissions[g] {
		if perm == p {
			return true
		}
	}

	return false
}
