// Package production provides the integrations a deployed pump controller
// needs around the charts: snapshot persistence of chart memory, Graphviz
// export of chart structure and publication of cycle records.
package production
