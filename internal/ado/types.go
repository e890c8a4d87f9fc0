package ado

// WorkItem is the provider-native representation of one Azure DevOps work
// item, fetched fresh each run and never persisted as-is.
type WorkItem struct {
	ID     int            `json:"id"`
	Rev    int            `json:"rev"`
	Fields WorkItemFields `json:"fields"`
	URL    string         `json:"url,omitempty"`
}

// WorkItemFields carries the subset of reference-name fields the importer
// consumes. Optional provider fields decode to their zero values.
type WorkItemFields struct {
	Title        string    `json:"System.Title"`
	Description  string    `json:"System.Description"`
	WorkItemType string    `json:"System.WorkItemType"`
	State        string    `json:"System.State"`
	AssignedTo   *Identity `json:"System.AssignedTo"`
	CreatedDate  string    `json:"System.CreatedDate"`
	TargetDate   string    `json:"Microsoft.VSTS.Scheduling.TargetDate"`
	StoryPoints  float64   `json:"Microsoft.VSTS.Scheduling.StoryPoints"`
	Tags         string    `json:"System.Tags"`
	Priority     int       `json:"System.Priority"`
	TeamProject  string    `json:"System.TeamProject"`
}

// Identity is an Azure DevOps identity reference.
type Identity struct {
	DisplayName string `json:"displayName"`
}

type workItemRef struct {
	ID int `json:"id"`
}

type wiqlResponse struct {
	WorkItems []workItemRef `json:"workItems"`
}

type workItemsResponse struct {
	Count int        `json:"count"`
	Value []WorkItem `json:"value"`
}
