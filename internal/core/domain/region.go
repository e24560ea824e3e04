package domain

import "fmt"

// RegionMap is the static mapping from a backend group id to a logical
// region name. Region is advisory display information: a lookup miss
// yields a synthetic label, never an error.
type RegionMap map[int64]string

// UnknownRegion labels tickets that carry no group at all.
const UnknownRegion = "unknown"

// DefaultRegions returns the compiled-in group/region table. Deployments
// override it via configuration.
func DefaultRegions() RegionMap {
	return RegionMap{
		1: "Global",
		2: "EMEA",
		3: "Americas",
		4: "APAC",
	}
}

// RegionForGroup resolves the region label for a group id, falling back
// to a generated label on a miss.
func (m RegionMap) RegionForGroup(groupID int64) string {
	if name, ok := m[groupID]; ok {
		return name
	}
	return fmt.Sprintf("Group %d", groupID)
}

// RegionForTicket resolves the region label for a ticket's group, using
// UnknownRegion when the ticket has none.
func (m RegionMap) RegionForTicket(t *Ticket) string {
	if t == nil || t.GroupID == nil {
		return UnknownRegion
	}
	return m.RegionForGroup(*t.GroupID)
}
