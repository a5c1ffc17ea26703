package mock

import "net/http/httptest"

// HTTPTestServer runs a Service on an httptest server.
type HTTPTestServer struct {
	*Service
	Server *httptest.Server
	// BaseURL is the server URL plus BasePath.
	BaseURL string
}

func NewHTTPTestServer(options ...Option) (*HTTPTestServer, error) {
	service, err := New(options...)
	if err != nil {
		return nil, err
	}
	ret := &HTTPTestServer{Service: service}
	ret.Server = httptest.NewServer(service.Handler())
	ret.BaseURL = ret.Server.URL + BasePath
	return ret, nil
}

func (s *HTTPTestServer) Close() {
	if s.Server != nil {
		s.Server.Close()
	}
	s.Server = nil
}
