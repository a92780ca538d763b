package rbac

// Default policy for the three platform roles.
var RolePermissions = map[string][]string{
	"student": {
		"experiment:view",
		"quiz:view",
		"attempt:submit",
		"attempt:view-own",
		"ai:chat",
		"profile:view",
		"profile:update",
		"user:change_password",
	},
	"faculty": {
		"experiment:view",
		"experiment:create",
		"experiment:update-own",
		"experiment:delete-own",
		"quiz:view",
		"quiz:create",
		"question:create",
		"question:generate",
		"attempt:view-own",
		"student:list",
		"student:progress",
		"roster:create",
		"roster:bulk",
		"ai:chat",
		"profile:view",
		"profile:update",
		"user:change_password",
	},
	"admin": {
		"*", // everything
	},
}
