package client

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Page is one decoded page of release-date records.
type Page struct {
	Records     []Record
	HasNextPage bool
	EndCursor   string
}

// Record is a single release date. Attributes holds the raw attribute texts
// and is empty when the record has none.
type Record struct {
	Attributes []string
}

// Wire request body.
type request struct {
	OperationName string     `json:"operationName"`
	Variables     variables  `json:"variables"`
	Extensions    extensions `json:"extensions"`
}

type variables struct {
	Const             string `json:"const"`
	First             int    `json:"first"`
	Locale            string `json:"locale"`
	OriginalTitleText bool   `json:"originalTitleText"`
	After             string `json:"after,omitempty"`
}

type extensions struct {
	PersistedQuery persistedQuery `json:"persistedQuery"`
}

type persistedQuery struct {
	Version    int    `json:"version"`
	SHA256Hash string `json:"sha256Hash"`
}

// Wire response body. Pointers distinguish a missing object from an empty one.
type response struct {
	Data   *responseData  `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type responseData struct {
	Title *struct {
		ReleaseDates *struct {
			Edges []struct {
				Node *struct {
					Attributes []struct {
						Text *string `json:"text"`
					} `json:"attributes"`
				} `json:"node"`
			} `json:"edges"`
			PageInfo *struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
		} `json:"releaseDates"`
	} `json:"title"`
}

// decodePage validates the response shape and flattens it into a Page.
func decodePage(id string, data []byte) (*Page, error) {
	var resp response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &ProtocolError{ID: id, Path: "$", Err: err}
	}

	if resp.Data == nil {
		if len(resp.Errors) > 0 {
			msgs := make([]string, 0, len(resp.Errors))
			for _, e := range resp.Errors {
				msgs = append(msgs, e.Message)
			}
			return nil, &ProtocolError{ID: id, Path: "errors", Err: fmt.Errorf("%s", strings.Join(msgs, "; "))}
		}
		return nil, &ProtocolError{ID: id, Path: "data", Err: ErrMissingField}
	}
	if resp.Data.Title == nil {
		return nil, &ProtocolError{ID: id, Path: "data.title", Err: ErrMissingField}
	}
	rd := resp.Data.Title.ReleaseDates
	if rd == nil {
		return nil, &ProtocolError{ID: id, Path: "data.title.releaseDates", Err: ErrMissingField}
	}
	if rd.PageInfo == nil {
		return nil, &ProtocolError{ID: id, Path: "data.title.releaseDates.pageInfo", Err: ErrMissingField}
	}

	page := &Page{
		Records:     make([]Record, 0, len(rd.Edges)),
		HasNextPage: rd.PageInfo.HasNextPage,
		EndCursor:   rd.PageInfo.EndCursor,
	}

	for i, edge := range rd.Edges {
		if edge.Node == nil {
			return nil, &ProtocolError{ID: id, Path: fmt.Sprintf("edges[%d].node", i), Err: ErrMissingField}
		}
		rec := Record{}
		for j, attr := range edge.Node.Attributes {
			if attr.Text == nil {
				return nil, &ProtocolError{
					ID:   id,
					Path: fmt.Sprintf("edges[%d].node.attributes[%d].text", i, j),
					Err:  ErrMissingField,
				}
			}
			rec.Attributes = append(rec.Attributes, *attr.Text)
		}
		page.Records = append(page.Records, rec)
	}

	if page.HasNextPage && page.EndCursor == "" {
		return nil, &ProtocolError{ID: id, Path: "data.title.releaseDates.pageInfo.endCursor", Err: ErrMissingField}
	}

	return page, nil
}
