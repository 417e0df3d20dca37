package entities

// Node and relationship vocabularies for the knowledge graph. Extraction is
// constrained to these closed sets; anything outside them is discarded
// before the merge.
const (
	NodePerson     = "Person"
	NodeProject    = "Project"
	NodeCompany    = "Company"
	NodeTechnology = "Technology"
	NodeRisk       = "Risk"
	NodeDecision   = "Decision"

	RelWorksOn   = "WORKS_ON"
	RelManagedBy = "MANAGED_BY"
	RelMentioned = "MENTIONED"
	RelHasRisk   = "HAS_RISK"
	RelDecidedTo = "DECIDED_TO"
)

var graphNodeTypes = map[string]bool{
	NodePerson:     true,
	NodeProject:    true,
	NodeCompany:    true,
	NodeTechnology: true,
	NodeRisk:       true,
	NodeDecision:   true,
}

var graphRelTypes = map[string]bool{
	RelWorksOn:   true,
	RelManagedBy: true,
	RelMentioned: true,
	RelHasRisk:   true,
	RelDecidedTo: true,
}

// IsValidNodeType reports whether t belongs to the node vocabulary.
func IsValidNodeType(t string) bool { return graphNodeTypes[t] }

// IsValidRelType reports whether t belongs to the relationship vocabulary.
func IsValidRelType(t string) bool { return graphRelTypes[t] }

// GraphNode is one typed entity extracted from a transcript, tagged with the
// meeting it came from.
type GraphNode struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	MeetingID string `json:"meeting_id"`
}

// GraphRelationship is one typed edge between two extracted entities.
type GraphRelationship struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Type      string `json:"type"`
	MeetingID string `json:"meeting_id"`
}

// GraphExtraction bundles the nodes and relationships produced for one
// meeting; the merge into the shared graph is additive.
type GraphExtraction struct {
	Nodes         []GraphNode         `json:"nodes"`
	Relationships []GraphRelationship `json:"relationships"`
}

// Filter drops elements outside the closed vocabularies and stamps every
// surviving element with meetingID.
func (g *GraphExtraction) Filter(meetingID string) {
	nodes := make([]GraphNode, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.Name == "" || !IsValidNodeType(n.Type) {
			continue
		}
		n.MeetingID = meetingID
		nodes = append(nodes, n)
	}
	g.Nodes = nodes

	rels := make([]GraphRelationship, 0, len(g.Relationships))
	for _, r := range g.Relationships {
		if r.From == "" || r.To == "" || !IsValidRelType(r.Type) {
			continue
		}
		r.MeetingID = meetingID
		rels = append(rels, r)
	}
	g.Relationships = rels
}
