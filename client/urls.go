package client

// URLBuilder constructs human-facing URLs for a registry package.
type URLBuilder interface {
	Package(owner, pkg string) string
	Versions(owner, pkg string) string
	PURL(owner, pkg string) string
}

// BuildURLs returns a map of all non-empty URLs for a package.
// Keys are "package", "versions", and "purl".
func BuildURLs(urls URLBuilder, owner, pkg string) map[string]string {
	result := make(map[string]string)
	if v := urls.Package(owner, pkg); v != "" {
		result["package"] = v
	}
	if v := urls.Versions(owner, pkg); v != "" {
		result["versions"] = v
	}
	if v := urls.PURL(owner, pkg); v != "" {
		result["purl"] = v
	}
	return result
}
