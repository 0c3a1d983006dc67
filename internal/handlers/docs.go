package handlers

import (
	"encoding/json"
	"net/http"
)

const apiTitle = "Climbing Stats API"

type object = map[string]interface{}

func queryParam(name, description string, schema object) object {
	return object{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    false,
		"schema":      schema,
	}
}

func pathParam(name string, schema object) object {
	return object{
		"name":     name,
		"in":       "path",
		"required": true,
		"schema":   schema,
	}
}

func jsonResponse(description string, schema object) object {
	return object{
		"description": description,
		"content": object{
			"application/json": object{"schema": schema},
		},
	}
}

func ref(name string) object {
	return object{"$ref": "#/components/schemas/" + name}
}

// openAPIDocument describes every route registered by StatsHandler
func openAPIDocument() object {
	yearSchema := object{"type": "integer", "minimum": minYear, "maximum": maxYear}
	errorResponse := jsonResponse("Error", ref("ErrorResponse"))

	return object{
		"openapi": "3.0.0",
		"info": object{
			"title":       apiTitle,
			"description": "Per-year, per-branch climbing trip statistics by activity type",
			"version":     "1.0.0",
		},
		"servers": []object{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": object{
			"/api/climbs/stats": object{
				"get": object{
					"summary":     "List climbing statistics",
					"description": "Published summary rows ordered by activity type, branch and year",
					"parameters": []object{
						queryParam("type", "Activity type, e.g. Ice, Ice cragging, Rock", object{"type": "string"}),
						queryParam("branch", "Branch name", object{"type": "string"}),
						queryParam("year", "Trip year", yearSchema),
						queryParam("page", "Page number", object{"type": "integer", "default": 1, "minimum": 1}),
						queryParam("limit", "Rows per page", object{"type": "integer", "default": defaultLimit, "minimum": 1, "maximum": maxLimit}),
					},
					"responses": object{
						"200": jsonResponse("Successful response", object{
							"type": "object",
							"properties": object{
								"data":        object{"type": "array", "items": ref("ClimbStatistics")},
								"total":       object{"type": "integer"},
								"page":        object{"type": "integer"},
								"limit":       object{"type": "integer"},
								"total_pages": object{"type": "integer"},
							},
						}),
						"400": errorResponse,
						"500": errorResponse,
					},
				},
			},
			"/api/climbs/stats/{type}/{year}/{branch}": object{
				"get": object{
					"summary": "Get one summary row",
					"parameters": []object{
						pathParam("type", object{"type": "string"}),
						pathParam("year", yearSchema),
						pathParam("branch", object{"type": "string"}),
					},
					"responses": object{
						"200": jsonResponse("Successful response", ref("ClimbStatistics")),
						"400": errorResponse,
						"404": errorResponse,
					},
				},
			},
			"/api/climbs/types": object{
				"get": object{
					"summary": "List published activity types",
					"responses": object{
						"200": jsonResponse("Successful response", object{
							"type": "object",
							"properties": object{
								"types": object{"type": "array", "items": object{"type": "string"}},
							},
						}),
					},
				},
			},
			"/health": object{
				"get": object{
					"summary": "Health check",
					"responses": object{
						"200": jsonResponse("Store reachable", object{"type": "object"}),
						"503": jsonResponse("Store unreachable", object{"type": "object"}),
					},
				},
			},
			"/metrics": object{
				"get": object{
					"summary": "Prometheus metrics",
					"responses": object{
						"200": object{
							"description": "Prometheus metrics in text format",
							"content":     object{"text/plain": object{"schema": object{"type": "string"}}},
						},
					},
				},
			},
		},
		"components": object{
			"schemas": object{
				"ClimbStatistics": object{
					"type": "object",
					"properties": object{
						"id":                                     object{"type": "integer"},
						"activity_type":                          object{"type": "string"},
						"run_id":                                 object{"type": "string", "format": "uuid"},
						"year":                                   object{"type": "integer"},
						"branch":                                 object{"type": "string"},
						"count_of_climbs":                        object{"type": "integer"},
						"sum_total_registered_participants":      object{"type": "integer"},
						"sum_successful_registered_participants": object{"type": "integer"},
						"success_ratio":                          object{"type": "number"},
						"created_at":                             object{"type": "string", "format": "date-time"},
						"updated_at":                             object{"type": "string", "format": "date-time"},
					},
				},
				"ErrorResponse": object{
					"type": "object",
					"properties": object{
						"error":      object{"type": "string"},
						"message":    object{"type": "string"},
						"code":       object{"type": "integer"},
						"request_id": object{"type": "string"},
					},
				},
			},
		},
	}
}

// OpenAPISpec serves the OpenAPI 3.0 document
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(openAPIDocument())
}
