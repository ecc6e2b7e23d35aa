// Package local holds the anonymous, visitor-local cart. Every implementation stores the whole
// serialized line list under the fixed key Key, scoped to one visitor session.
package local

import (
	"encoding/json"
	"fmt"

	"github.com/Alturino/storefront/cart/pkg/response"
)

const Key = "cart"

func encode(items []response.LineItem) ([]byte, error) {
	if items == nil {
		items = []response.LineItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed marshaling local cart with error=%w", err)
	}
	return data, nil
}

func decode(data []byte) ([]response.LineItem, error) {
	items := []response.LineItem{}
	if len(data) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed unmarshaling local cart with error=%w", err)
	}
	return items, nil
}
