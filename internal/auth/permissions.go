package auth

import (
	"strings"

	"github.com/spec-kit/storefront-web/internal/domain"
)

// Action is a leaf operation exposed by a catalog entity.
type Action string

const (
	ActionView   Action = "VIEW"
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Sentinel and frequently referenced permission values.
const (
	PermAdmin     = "ADMIN.GRANTED"
	PermBasic     = "BASIC.PUBLIC"
	PermDashboard = "DASHBOARD"

	PermProductView    = "MANAGE_PRODUCT.PRODUCT.VIEW"
	PermSystemUserView = "SYSTEM.USER.VIEW"
	PermSystemRoleView = "SYSTEM.ROLE.VIEW"
	PermSystemRoleEdit = "SYSTEM.ROLE.UPDATE"
	PermOrderView      = "MANAGE_ORDER.ORDER.VIEW"
)

// Node is one level of the permission catalog: a domain, an entity or a leaf.
// Only leaves carry a Value.
type Node struct {
	Key      string
	Value    string
	Children []Node
}

// IsLeaf reports whether the node holds a permission value.
func (n Node) IsLeaf() bool {
	return len(n.Children) == 0
}

var (
	crud = []Action{ActionView, ActionCreate, ActionUpdate, ActionDelete}
	cud  = []Action{ActionCreate, ActionUpdate, ActionDelete}
)

var catalog = Node{Key: "PERMISSIONS", Children: []Node{
	{Key: "ADMIN", Value: PermAdmin},
	{Key: "BASIC", Value: PermBasic},
	{Key: "DASHBOARD", Value: PermDashboard},
	group("MANAGE_PRODUCT",
		entity("PRODUCT", crud...),
		entity("PRODUCT_TYPE", cud...),
		entity("COMMENT", ActionUpdate, ActionDelete),
	),
	group("SYSTEM",
		entity("USER", crud...),
		entity("ROLE", crud...),
	),
	group("MANAGE_ORDER",
		entity("REVIEW", ActionUpdate, ActionDelete),
		entity("ORDER", crud...),
	),
	group("SETTING",
		entity("PAYMENT_TYPE", cud...),
		entity("DELIVERY_TYPE", cud...),
		entity("CITY", cud...),
	),
}}

func entity(key string, actions ...Action) Node {
	n := Node{Key: key, Children: make([]Node, 0, len(actions))}
	for _, a := range actions {
		n.Children = append(n.Children, Node{Key: string(a)})
	}
	return n
}

func group(key string, entities ...Node) Node {
	for i := range entities {
		for j := range entities[i].Children {
			leaf := &entities[i].Children[j]
			leaf.Value = key + "." + entities[i].Key + "." + leaf.Key
		}
	}
	return Node{Key: key, Children: entities}
}

// Catalog returns a copy of the full permission tree.
func Catalog() Node {
	return clone(catalog)
}

func clone(n Node) Node {
	out := Node{Key: n.Key, Value: n.Value}
	if len(n.Children) > 0 {
		out.Children = make([]Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = clone(c)
		}
	}
	return out
}

// Flatten walks node depth-first and returns every leaf value not listed in exclude.
func Flatten(node Node, exclude ...string) []string {
	skip := make(map[string]struct{}, len(exclude))
	for _, v := range exclude {
		skip[v] = struct{}{}
	}
	var out []string
	var walk func(Node)
	walk = func(n Node) {
		if n.IsLeaf() {
			if n.Value == "" {
				return
			}
			if _, ok := skip[n.Value]; !ok {
				out = append(out, n.Value)
			}
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(node)
	return out
}

// Group resolves a dotted catalog path such as "SYSTEM" or "SYSTEM.USER".
func Group(path string) (Node, bool) {
	n, ok := find(splitPath(path))
	if !ok {
		return Node{}, false
	}
	return clone(n), true
}

// Lookup maps an (action, subject) pair to its permission value. Unknown pairs
// yield "" so callers fail closed. A top-level leaf such as DASHBOARD answers any
// action with its own value.
func Lookup(subject, action string) string {
	n, ok := find(splitPath(subject))
	if !ok {
		return ""
	}
	if n.IsLeaf() {
		return n.Value
	}
	act := strings.ToUpper(strings.TrimSpace(action))
	for _, c := range n.Children {
		if c.Key == act && c.IsLeaf() {
			return c.Value
		}
	}
	return ""
}

// Known reports whether value is a leaf of the catalog.
func Known(value string) bool {
	for _, v := range Flatten(catalog) {
		if v == value {
			return true
		}
	}
	return false
}

func splitPath(path string) []string {
	path = strings.ToUpper(strings.TrimSpace(path))
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

func find(keys []string) (Node, bool) {
	if len(keys) == 0 {
		return Node{}, false
	}
	cur := catalog
	for _, k := range keys {
		next, ok := child(cur, k)
		if !ok {
			return Node{}, false
		}
		cur = next
	}
	return cur, true
}

func child(n Node, key string) (Node, bool) {
	for _, c := range n.Children {
		if c.Key == key {
			return c, true
		}
	}
	return Node{}, false
}

// ResolveEffectivePermissions expands the sentinel permissions of the user's role.
// ADMIN grants the whole catalog except the sentinels, BASIC collapses the role to
// dashboard access only, and any other role is returned unchanged.
func ResolveEffectivePermissions(user *domain.User) []string {
	perms := user.RolePermissions()
	if len(perms) == 0 {
		return []string{}
	}
	if contains(perms, PermAdmin) {
		return Flatten(catalog, PermAdmin, PermBasic)
	}
	if contains(perms, PermBasic) {
		return []string{PermDashboard}
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

func contains(values []string, v string) bool {
	for _, item := range values {
		if item == v {
			return true
		}
	}
	return false
}
