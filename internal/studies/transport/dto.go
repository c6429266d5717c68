package transport

import "fieldsurvey/platform/geo"

type SurveyResponse struct {
	ID       string      `json:"id"`
	StudyID  string      `json:"study_id"`
	Title    string      `json:"title"`
	Boundary geo.Polygon `json:"boundary"`
	Center   geo.Point   `json:"center"`
	Fields   []string    `json:"fields"`
}

type StudyResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Author      string           `json:"author"`
	Description string           `json:"description"`
	Surveys     []SurveyResponse `json:"surveys"`
}

type StudyListResponse struct {
	Items []StudyResponse `json:"items"`
}
