package experiment

// Experiment pairs a reference video with explanatory text authored by (or
// generated for) one faculty member.
type Experiment struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	YouTubeURL  string `json:"youtube_url"`
	Explanation string `json:"explanation"`
	FacultyID   int64  `json:"faculty_id"`
	CreatedAt   int64  `json:"created_at"`
}
