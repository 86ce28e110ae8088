package models

type Movie struct {
	ID       string `json:"id"`
	ImdbID   string `json:"imdb_id"`
	Title    string `json:"title"`
	Year     int    `json:"year"`
	Poster   string `json:"poster"`
	Overview string `json:"overview"`
	AddedAt  int64  `json:"added_at"`
}

func (m Movie) Value() map[string]any {
	return map[string]any{
		"imdbId":   m.ImdbID,
		"title":    m.Title,
		"year":     m.Year,
		"poster":   m.Poster,
		"overview": m.Overview,
		"addedAt":  m.AddedAt,
	}
}

func MovieFromValue(id string, v any) (Movie, bool) {
	mm, ok := AsMap(v)
	if !ok {
		return Movie{}, false
	}
	return Movie{
		ID:       id,
		ImdbID:   AsString(mm["imdbId"]),
		Title:    AsString(mm["title"]),
		Year:     int(AsInt64(mm["year"])),
		Poster:   AsString(mm["poster"]),
		Overview: AsString(mm["overview"]),
		AddedAt:  AsInt64(mm["addedAt"]),
	}, true
}
