package jobsource

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
)

// SearchParams describe what to ask the provider for. Constructed once from
// configuration at startup and passed into every fetch.
type SearchParams struct {
	// srcparam is a custom tag for reflect. Please see buildParams below.
	Sites         []string `srcparam:"site" mapstructure:"sites"`
	Term          string   `srcparam:"search_term" mapstructure:"term"`
	Location      string   `srcparam:"location" mapstructure:"location"`
	HoursOld      int      `srcparam:"hours_old" mapstructure:"hours-old"`
	ResultsWanted int      `srcparam:"results_wanted" mapstructure:"results-wanted"`
	Offset        int      `srcparam:"-" mapstructure:"offset"`
}

// buildParams converts SearchParams into query values using the srcparam
// struct tag. Zero values are omitted so the provider applies its defaults.
func buildParams(params *SearchParams) url.Values {
	q := url.Values{}
	fields := reflect.VisibleFields(reflect.TypeOf(*params))
	for _, field := range fields {
		key := field.Tag.Get("srcparam")
		if key == "" || key == "-" {
			continue
		}

		switch field.Type.Kind() {
		case reflect.Slice:
			s := reflect.ValueOf(params).Elem().Field(field.Index[0]).Interface()
			switch v := s.(type) {
			case []int:
				for _, value := range v {
					q.Add(key, strconv.Itoa(value))
				}
			case []string:
				for _, value := range v {
					q.Add(key, value)
				}
			}

		default:
			value := fmt.Sprintf("%v", reflect.ValueOf(params).Elem().Field(field.Index[0]).Interface())
			if value != "" && value != "0" {
				q.Set(key, value)
			}
		}
	}

	return q
}
