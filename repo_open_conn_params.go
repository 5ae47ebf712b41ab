package wsession

import (
	"context"
	"net/http"
	"net/url"
)

type (
	// OpenConnectionParams are the handshake inputs resolved before every dial.
	OpenConnectionParams struct {
		URL    url.URL
		Header http.Header
	}

	OpenConnectionParamsGetter func(ctx context.Context) (OpenConnectionParams, error)

	// OpenConnectionParamsRepo resolves dial parameters lazily, so signed URLs
	// or short lived tokens can be fetched right before the handshake.
	OpenConnectionParamsRepo struct {
		logger logger
		getter OpenConnectionParamsGetter
	}
)

func (r OpenConnectionParamsRepo) Get(
	ctx context.Context,
) (params OpenConnectionParams, err error) {
	params, err = r.getter(ctx)
	if err != nil {
		r.logger.Errorf("cannot fetch open connection params: %s", err)
	}
	return
}

func NewOpenConnectionParamsRepo(
	logger logger,
	getter OpenConnectionParamsGetter,
) OpenConnectionParamsRepo {
	return OpenConnectionParamsRepo{getter: getter, logger: logger}
}

// StaticOpenConnectionParams always resolves to u and a copy of header.
func StaticOpenConnectionParams(u url.URL, header http.Header) OpenConnectionParamsGetter {
	return func(context.Context) (OpenConnectionParams, error) {
		return OpenConnectionParams{URL: u, Header: header.Clone()}, nil
	}
}
