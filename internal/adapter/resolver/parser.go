package resolver

import (
	"net"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/thushan/olla4/internal/core/domain"
)

// parseBody parses a namerd resolve response body. Grounded on
// resolver/namerd.rs's parse_chunks/to_weighted_addrs: a response whose "type"
// field isn't "bound" yields domain.ResolverNotBoundError; a missing
// endpoint_addr_weight defaults to 1.0 before the whole set is normalised to
// sum to 1.0.
func parseBody(body []byte) ([]domain.WeightedAddress, error) {
	if !gjson.ValidBytes(body) {
		return nil, &domain.ResolverParseError{Err: errNotJSON}
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.Exists() {
		return nil, &domain.ResolverParseError{Err: errNotJSON}
	}

	kind := parsed.Get("type").String()
	if kind != "bound" {
		return nil, &domain.ResolverNotBoundError{Kind: kind}
	}

	addrsResult := parsed.Get("addrs")
	if !addrsResult.IsArray() {
		return nil, &domain.ResolverParseError{Err: errMissingAddrs}
	}

	var addrs []domain.WeightedAddress
	var parseErr error
	addrsResult.ForEach(func(_, addr gjson.Result) bool {
		ip := addr.Get("ip").String()
		port := addr.Get("port").Int()

		tcpAddr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(ip, strconv.FormatInt(port, 10)))
		if err != nil {
			parseErr = &domain.ResolverParseError{Err: err}
			return false
		}

		weight := 1.0
		if w := addr.Get("meta.endpoint_addr_weight"); w.Exists() {
			weight = w.Float()
		}

		addrs = append(addrs, domain.NewWeightedAddress(tcpAddr, weight))
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	domain.NormaliseWeights(addrs)
	return addrs, nil
}
