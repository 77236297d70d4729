package domain

// Subject is the entity a work item or activity stream pertains to.
// The dashboard lists them; the core only reads them to personalise text.
type Subject struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Avatar      string   `json:"avatar"`
	Age         int      `json:"age"`
	Nationality string   `json:"nationality"`
	Hobbies     []string `json:"hobbies"`
}
