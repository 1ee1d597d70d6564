package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

const docBase = "https://github.com/vango-dev/bore/blob/main/docs/errors.md#"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Query Errors (B001-B009)
	// ============================================

	"B001": {
		Category: CategoryQuery,
		Message:  "Invalid CSS selector",
		Detail:   "The selector could not be parsed. Selectors are matched against elements only; pseudo-elements are not supported.",
		DocURL:   docBase + "b001",
	},
	"B002": {
		Category: CategoryQuery,
		Message:  "Unsupported query",
		Detail:   "Queries are a selector string, a custom element definition, a predicate, a template element, a criteria map, an XPath or an expression.",
		DocURL:   docBase + "b002",
	},
	"B003": {
		Category: CategoryQuery,
		Message:  "Invalid XPath expression",
		Detail:   "The XPath expression could not be compiled.",
		DocURL:   docBase + "b003",
	},
	"B004": {
		Category: CategoryQuery,
		Message:  "Invalid query expression",
		Detail:   "The expression could not be compiled or did not produce a bool.",
		DocURL:   docBase + "b004",
	},

	// ============================================
	// Mount Errors (B010-B019)
	// ============================================

	"B010": {
		Category: CategoryMount,
		Message:  "Markup contains no element",
		Detail:   "Mounting markup uses its first element. The markup held only text or comments.",
		DocURL:   docBase + "b010",
	},
	"B011": {
		Category: CategoryMount,
		Message:  "Unsupported mount target",
		Detail:   "Only elements, fragments, shadow roots, wrappers and markup strings can be mounted.",
		DocURL:   docBase + "b011",
	},
	"B012": {
		Category: CategoryMount,
		Message:  "Arena closed",
		Detail:   "The arena was closed and its fixture detached.",
		DocURL:   docBase + "b012",
	},
	"B013": {
		Category: CategoryMount,
		Message:  "Node belongs to another document",
		Detail:   "Nodes must be created by the arena's document before they are mounted.",
		DocURL:   docBase + "b013",
	},
	"B014": {
		Category: CategoryMount,
		Message:  "Invalid custom element name",
		Detail:   "Custom element names start with a lowercase letter and contain a hyphen.",
		DocURL:   docBase + "b014",
	},
	"B015": {
		Category: CategoryMount,
		Message:  "Custom element already defined",
		Detail:   "A name or definition can only be registered once per registry.",
		DocURL:   docBase + "b015",
	},

	// ============================================
	// Wait Errors (B020-B029)
	// ============================================

	"B020": {
		Category: CategoryWait,
		Message:  "Wait timed out",
		Detail:   "The condition did not hold before the timeout.",
		DocURL:   docBase + "b020",
	},
	"B021": {
		Category: CategoryWait,
		Message:  "Wait condition panicked",
		Detail:   "The condition panicked while polling; the panic value is included.",
		DocURL:   docBase + "b021",
	},
	"B022": {
		Category: CategoryWait,
		Message:  "Wait canceled",
		Detail:   "The context ended before the condition held.",
		DocURL:   docBase + "b022",
	},
	"B023": {
		Category: CategoryWait,
		Message:  "Wait started inside a loop task",
		Detail:   "A blocking wait was called from a condition or reaction running on the arena's loop. Start it with WaitForAsync instead.",
		DocURL:   docBase + "b023",
	},

	// ============================================
	// Config Errors (B030-B039)
	// ============================================

	"B030": {
		Category: CategoryConfig,
		Message:  "Invalid config file",
		Detail:   "bore.json or bore.yaml could not be parsed.",
		DocURL:   docBase + "b030",
	},
	"B031": {
		Category: CategoryConfig,
		Message:  "Invalid config value",
		Detail:   "A config value is out of range or not recognized.",
		DocURL:   docBase + "b031",
	},
	"B032": {
		Category: CategoryConfig,
		Message:  "Invalid config patch",
		Detail:   "The --config-patch value must be a JSON merge patch object.",
		DocURL:   docBase + "b032",
	},

	// ============================================
	// Source Errors (B040-B049)
	// ============================================

	"B040": {
		Category: CategorySource,
		Message:  "Fixture not found",
		Detail:   "The fixture file, URL or object does not exist.",
		DocURL:   docBase + "b040",
	},
	"B041": {
		Category: CategorySource,
		Message:  "Fixture fetch failed",
		Detail:   "The fixture could not be read.",
		DocURL:   docBase + "b041",
	},
	"B042": {
		Category: CategorySource,
		Message:  "Unsupported fixture source",
		Detail:   "Sources are a file path, - for stdin, an http(s) URL or s3://bucket/key.",
		DocURL:   docBase + "b042",
	},

	// ============================================
	// CLI Errors (B050-B099)
	// ============================================

	"B050": {
		Category: CategoryCLI,
		Message:  "Invalid arguments",
		DocURL:   docBase + "b050",
	},
	"B051": {
		Category: CategoryCLI,
		Message:  "Server failed",
		Detail:   "The HTTP server stopped with an error.",
		DocURL:   docBase + "b051",
	},
	"B052": {
		Category: CategoryCLI,
		Message:  "Watch failed",
		Detail:   "The file watcher stopped with an error.",
		DocURL:   docBase + "b052",
	},
	"B099": {
		Category: CategoryCLI,
		Message:  "Unexpected error",
		DocURL:   docBase + "b099",
	},
}

// GetAllCodes returns all registered error codes in order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
