package event

// Grouping keys used when a record carries no region or venue.
const (
	DefaultRegion = "Other Areas"
	DefaultVenue  = "Unknown Venue"
)

// VenueGroup holds the records for one venue in extraction order.
type VenueGroup struct {
	Venue  string   `json:"venue"`
	Events []Record `json:"events"`
}

// RegionGroup holds the venues of one region in first-seen order.
type RegionGroup struct {
	Region string        `json:"region"`
	Venues []*VenueGroup `json:"venues"`
}

// Grouped is the region → venue → records view used for presentation.
// Regions and venues keep first-seen order.
type Grouped struct {
	Regions []*RegionGroup `json:"regions"`

	regionIdx map[string]*RegionGroup
	venueIdx  map[string]map[string]*VenueGroup
}

// Result is the output of Aggregate.
type Result struct {
	Flat    []Record
	Grouped *Grouped
}

// Aggregate concatenates per-source record lists in the order given and groups the
// result. No deduplication happens here.
func Aggregate(perSource [][]Record) *Result {
	flat := make([]Record, 0)
	for _, records := range perSource {
		flat = append(flat, records...)
	}
	return &Result{
		Flat:    flat,
		Grouped: Group(flat),
	}
}

// Group builds the region → venue view of records in a single pass.
func Group(records []Record) *Grouped {
	g := &Grouped{
		Regions:   make([]*RegionGroup, 0),
		regionIdx: make(map[string]*RegionGroup),
		venueIdx:  make(map[string]map[string]*VenueGroup),
	}
	for _, r := range records {
		g.add(r)
	}
	return g
}

func (g *Grouped) add(r Record) {
	region := r.Region
	if region == "" {
		region = DefaultRegion
	}
	venue := r.Venue
	if venue == "" {
		venue = DefaultVenue
	}

	rg, ok := g.regionIdx[region]
	if !ok {
		rg = &RegionGroup{Region: region, Venues: make([]*VenueGroup, 0)}
		g.regionIdx[region] = rg
		g.venueIdx[region] = make(map[string]*VenueGroup)
		g.Regions = append(g.Regions, rg)
	}

	vg, ok := g.venueIdx[region][venue]
	if !ok {
		vg = &VenueGroup{Venue: venue, Events: make([]Record, 0)}
		g.venueIdx[region][venue] = vg
		rg.Venues = append(rg.Venues, vg)
	}
	vg.Events = append(vg.Events, r)
}

// Lookup returns the records grouped under region and venue, or nil.
func (g *Grouped) Lookup(region, venue string) []Record {
	venues, ok := g.venueIdx[region]
	if !ok {
		return nil
	}
	if vg, ok := venues[venue]; ok {
		return vg.Events
	}
	return nil
}

// Map returns the grouping as plain nested maps.
func (g *Grouped) Map() map[string]map[string][]Record {
	out := make(map[string]map[string][]Record, len(g.Regions))
	for _, rg := range g.Regions {
		venues := make(map[string][]Record, len(rg.Venues))
		for _, vg := range rg.Venues {
			venues[vg.Venue] = vg.Events
		}
		out[rg.Region] = venues
	}
	return out
}

// Len returns the total number of grouped records.
func (g *Grouped) Len() int {
	n := 0
	for _, rg := range g.Regions {
		for _, vg := range rg.Venues {
			n += len(vg.Events)
		}
	}
	return n
}

// DuplicateCount returns how many records share a Key with an earlier record.
func DuplicateCount(records []Record) int {
	seen := make(map[string]bool)
	dups := 0
	for _, r := range records {
		k := r.Key()
		if seen[k] {
			dups++
			continue
		}
		seen[k] = true
	}
	return dups
}
