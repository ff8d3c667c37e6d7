package server

import "lanchat/chaterr"

var errNetwork = chaterr.ErrNetwork
