// Package connectors holds the catalogue of source connectors.
//
// Each variant lives in its own subpackage and exposes a New constructor
// and a Definition. NewRegistry wires all of them into a single
// driven.ConnectorFactory used by the services.
package connectors
