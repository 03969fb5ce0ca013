package api

import "painel/pkg/dataset"

type sessionResponse struct {
	ID string `json:"id"`
}

type datasetInfo struct {
	Key        string   `json:"key"`
	Sheets     []string `json:"sheets"`
	Columns    []string `json:"columns"`
	Writable   bool     `json:"writable"`
	TTLSeconds float64  `json:"ttl_seconds"`
}

type writeRequest struct {
	Mode string        `json:"mode"`
	Rows []dataset.Row `json:"rows"`
}

type accessRequest struct {
	Login string `json:"login"`
	Name  string `json:"name"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func describe(d dataset.Dataset) datasetInfo {
	info := datasetInfo{
		Key:        d.Key,
		Columns:    d.Columns(),
		Writable:   !d.Aggregated(),
		TTLSeconds: d.TTL.Seconds(),
	}
	for _, p := range d.Partitions {
		info.Sheets = append(info.Sheets, p.Location.Sheet)
	}
	return info
}
