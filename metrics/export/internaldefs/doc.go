// Package internaldefs holds the shared metric definitions consumed by the
// exporter packages. It exists so the Prometheus and OTel exporters render
// identical names and help strings without importing each other.
package internaldefs
