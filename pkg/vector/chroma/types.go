package chroma

// chromaCollection represents a Chroma collection response.
type chromaCollection struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// chromaCreateRequest is the request body for creating a collection.
type chromaCreateRequest struct {
	Name        string         `json:"name"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	GetOrCreate bool           `json:"get_or_create"`
}

// chromaUpsertRequest is the request body for upserting records.
type chromaUpsertRequest struct {
	IDs        []string         `json:"ids"`
	Embeddings [][]float32      `json:"embeddings"`
	Metadatas  []map[string]any `json:"metadatas,omitempty"`
	Documents  []string         `json:"documents,omitempty"`
}

// chromaQueryRequest is the request body for querying.
type chromaQueryRequest struct {
	QueryEmbeddings [][]float32 `json:"query_embeddings"`
	NResults        int         `json:"n_results"`
	Include         []string    `json:"include"`
}

// chromaQueryResponse is the response from a query.
type chromaQueryResponse struct {
	IDs       [][]string         `json:"ids"`
	Distances [][]float32        `json:"distances"`
	Metadatas [][]map[string]any `json:"metadatas"`
	Documents [][]string         `json:"documents"`
}

// chromaGetRequest is the request body for listing records.
type chromaGetRequest struct {
	Include []string `json:"include"`
}

// chromaGetResponse is the response from a get.
type chromaGetResponse struct {
	IDs []string `json:"ids"`
}

// chromaDeleteRequest is the request body for deleting records.
type chromaDeleteRequest struct {
	IDs []string `json:"ids"`
}
